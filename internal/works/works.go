// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package works queries the OpenAlex Works API for open-access records
// with usable PDF URLs. The resulting table is the input dataset for a
// harvest run.
package works

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mkamal/oa-harvest/internal/httputil"
	"github.com/mkamal/oa-harvest/pkg/types"
)

// openAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

// oaFilter restricts results to open-access works that expose a PDF URL
// and carry a DOI.
const oaFilter = "is_oa:true,has_pdf_url:true,has_doi:true"

// Client lists works from the OpenAlex API.
type Client struct {
	HTTP *http.Client
}

// ListOpenAccess collects up to cfg.Count records, following OpenAlex
// cursor pagination. Works whose open-access location has no URL are
// skipped; rate limiting is retried with backoff.
func (c *Client) ListOpenAccess(ctx context.Context, cfg types.WorksConfig, w io.Writer) ([]types.WorkRecord, error) {
	count := cfg.Count
	if count <= 0 {
		count = 100
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	if perPage > 200 {
		perPage = 200
	}

	fmt.Fprintf(w, "fetching %d open-access works with valid URLs\n", count)

	var records []types.WorkRecord
	cursor := "*"
	for cursor != "" && len(records) < count {
		page, nextCursor, err := c.fetchPage(ctx, cfg, perPage, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, work := range page {
			if work.OpenAccess.OAURL == "" {
				continue
			}
			records = append(records, types.WorkRecord{
				OAURL:           work.OpenAccess.OAURL,
				ID:              work.ID,
				Title:           work.Title,
				PublicationYear: work.PublicationYear,
				IsOA:            work.OpenAccess.IsOA,
				DOI:             work.DOI,
			})
			if len(records) >= count {
				break
			}
		}
		cursor = nextCursor
	}

	fmt.Fprintf(w, "collected %d records\n", len(records))
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, cfg types.WorksConfig, perPage int, cursor string) ([]openAlexWork, string, error) {
	params := url.Values{
		"filter":   {oaFilter},
		"per_page": {strconv.Itoa(perPage)},
		"cursor":   {cursor},
	}
	if cfg.Email != "" {
		params.Set("mailto", cfg.Email)
	}

	reqURL := openAlexWorksBase + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return nil, "", fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return oar.Results, oar.Meta.NextCursor, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count      int    `json:"count"`
	PerPage    int    `json:"per_page"`
	NextCursor string `json:"next_cursor"`
}

type openAlexWork struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	DOI             string             `json:"doi"`
	PublicationYear int                `json:"publication_year"`
	OpenAccess      openAlexOpenAccess `json:"open_access"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}
