// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"io"
	"sort"

	"github.com/mkamal/oa-harvest/internal/browser"
	"github.com/mkamal/oa-harvest/pkg/types"
)

// BatchState holds the aggregate counters of one orchestrator run.
// Succeeded + Failed always equals Total.
type BatchState struct {
	Total     int
	Succeeded int
	Failed    int
}

// Entry maps one input URL to its outcome. Filename comes from the
// filesystem diff around the attempt, not from the attempt's own report;
// empty string means no file could be attributed.
type Entry struct {
	URL      string
	Filename string
	Status   Status
	Bytes    int64
}

// BatchResult is the output of RunBatch: counters plus the
// insertion-ordered URL→filename mapping.
type BatchResult struct {
	State   BatchState
	Entries []Entry
}

// Mapping returns the url→filename map.
func (r BatchResult) Mapping() map[string]string {
	m := make(map[string]string, len(r.Entries))
	for _, e := range r.Entries {
		m[e.URL] = e.Filename
	}
	return m
}

// Unresolved returns the URLs with no attributable file, sorted
// lexicographically as a stable artifact independent of input order.
func (r BatchResult) Unresolved() []string {
	var urls []string
	for _, e := range r.Entries {
		if e.Filename == "" {
			urls = append(urls, e.URL)
		}
	}
	sort.Strings(urls)
	return urls
}

// RunBatch processes urls strictly in input order, one attempt at a
// time: the single browser session and the shared download directory
// leave no room for a second acquisition in flight. Per-URL failures
// never abort the batch. An inter-URL humanizing delay applies between
// attempts, not after the last.
func RunBatch(d browser.Driver, obs Observer, clock Clock, cfg types.HarvestConfig, urls []string, w io.Writer) BatchResult {
	result := BatchResult{State: BatchState{Total: len(urls)}}

	for i, url := range urls {
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(urls), url)

		before := obs.Snapshot().Completed
		outcome := Attempt(d, obs, clock, cfg, url, w)

		// The filesystem diff is the authoritative source of the
		// produced filename; the attempt's own report is advisory.
		filename := ""
		if outcome.Succeeded() {
			after := obs.Snapshot()
			if names := after.NewSince(before); len(names) > 0 {
				filename = names[0]
				if len(names) > 1 {
					fmt.Fprintf(w, "warning: %d new files after one attempt, attributing %s\n",
						len(names), filename)
				}
			} else {
				fmt.Fprintf(w, "warning: attempt succeeded but no new file found for %s\n", url)
			}
		}

		if outcome.Succeeded() {
			result.State.Succeeded++
			fmt.Fprintf(w, "success: %s -> %s (%d bytes)\n", url, filename, outcome.Bytes)
		} else {
			result.State.Failed++
			if outcome.Err != nil {
				fmt.Fprintf(w, "failed:  %s (%s: %v)\n", url, outcome.Status, outcome.Err)
			} else {
				fmt.Fprintf(w, "failed:  %s (%s)\n", url, outcome.Status)
			}
		}

		result.Entries = append(result.Entries, Entry{
			URL:      url,
			Filename: filename,
			Status:   outcome.Status,
			Bytes:    outcome.Bytes,
		})

		if i < len(urls)-1 {
			jitter(clock, cfg.InterURLDelay)
		}
	}

	fmt.Fprintf(w, "\nBatch summary: %d succeeded, %d failed (total: %d)\n",
		result.State.Succeeded, result.State.Failed, result.State.Total)
	return result
}
