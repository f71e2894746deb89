// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package records reads and writes the CSV tables that flow between the
// works listing and the harvest run: the input works table, the output
// table with attributed filenames, and the unresolved-URL list.
package records

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mkamal/oa-harvest/pkg/types"
)

var baseHeader = []string{"oa_url", "id", "title", "publication_year", "is_oa", "doi"}

const filenameColumn = "downloaded_filename"

// ReadWorks loads a works CSV. Columns are located by header name so the
// file may carry extra columns in any order. Rows without an oa_url are
// skipped: they cannot be harvested.
func ReadWorks(path string) ([]types.WorkRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file, expected a header row", path)
	}

	col := make(map[string]int)
	for i, name := range rows[0] {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := col["oa_url"]; !ok {
		return nil, fmt.Errorf("%s: missing oa_url column", path)
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var recs []types.WorkRecord
	for _, row := range rows[1:] {
		oaURL := field(row, "oa_url")
		if oaURL == "" {
			continue
		}
		rec := types.WorkRecord{
			OAURL:              oaURL,
			ID:                 field(row, "id"),
			Title:              field(row, "title"),
			DOI:                field(row, "doi"),
			DownloadedFilename: field(row, filenameColumn),
		}
		if year := field(row, "publication_year"); year != "" {
			rec.PublicationYear, _ = strconv.Atoi(year)
		}
		if oa := field(row, "is_oa"); oa != "" {
			rec.IsOA, _ = strconv.ParseBool(oa)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// WriteWorks writes the works table. With withFilenames, the
// downloaded_filename column is appended so the caller can persist a
// harvest run's attribution.
func WriteWorks(path string, recs []types.WorkRecord, withFilenames bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := baseHeader
	if withFilenames {
		header = append(append([]string{}, baseHeader...), filenameColumn)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, rec := range recs {
		row := []string{
			rec.OAURL,
			rec.ID,
			rec.Title,
			strconv.Itoa(rec.PublicationYear),
			strconv.FormatBool(rec.IsOA),
			rec.DOI,
		}
		if withFilenames {
			row = append(row, rec.DownloadedFilename)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

// URLs returns the oa_url of each record in table order.
func URLs(recs []types.WorkRecord) []string {
	urls := make([]string, 0, len(recs))
	for _, rec := range recs {
		urls = append(urls, rec.OAURL)
	}
	return urls
}

// ApplyMapping fills DownloadedFilename from a url→filename mapping.
// Records whose URL is absent from the mapping are left untouched.
func ApplyMapping(recs []types.WorkRecord, mapping map[string]string) {
	for i := range recs {
		if name, ok := mapping[recs[i].OAURL]; ok {
			recs[i].DownloadedFilename = name
		}
	}
}

// WriteUnresolved writes urls one per line. The caller passes the sorted
// unresolved set from a batch result.
func WriteUnresolved(path string, urls []string) error {
	var b strings.Builder
	for _, u := range urls {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
