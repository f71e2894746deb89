// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures and configuration for
// the oa-harvest stages.
package types

// WorkRecord is one row of the works table: an open-access work as
// returned by OpenAlex, plus the filename produced for it by a harvest
// run (empty until a run attributes a file to the URL).
type WorkRecord struct {
	OAURL           string `json:"oa_url" yaml:"oa_url"`
	ID              string `json:"id" yaml:"id"`
	Title           string `json:"title" yaml:"title"`
	PublicationYear int    `json:"publication_year" yaml:"publication_year"`
	IsOA            bool   `json:"is_oa" yaml:"is_oa"`
	DOI             string `json:"doi" yaml:"doi"`

	// DownloadedFilename is filled in after a harvest run. Empty string
	// means no file could be attributed to the URL.
	DownloadedFilename string `json:"downloaded_filename" yaml:"downloaded_filename"`
}
