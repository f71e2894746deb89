// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest implements the acquisition state machine: filesystem
// observation of the browser's download directory, bot-challenge
// detection with bounded human-assisted waiting, phased download
// completion monitoring, per-URL acquisition attempts, and the batch
// orchestrator that sequences them.
package harvest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// completedExt is the extension of finished target files.
const completedExt = ".pdf"

// defaultPartialExts are the browser temp-file conventions that mark an
// in-flight download. Chromium writes .crdownload, Firefox writes .part.
var defaultPartialExts = []string{".crdownload", ".part"}

// Snapshot is the state of a download directory at one instant:
// completed target files and partial in-flight markers, each mapped to
// its size in bytes.
type Snapshot struct {
	Completed map[string]int64
	Partials  map[string]int64
}

// HasPartial reports whether any in-flight marker was observed.
func (s Snapshot) HasPartial() bool { return len(s.Partials) > 0 }

// NewSince returns the names of completed files present in s but absent
// from baseline, sorted lexicographically.
func (s Snapshot) NewSince(baseline map[string]int64) []string {
	var names []string
	for name := range s.Completed {
		if _, ok := baseline[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Observer produces directory snapshots. The directory may be written
// to concurrently by the browser; implementations only read.
type Observer interface {
	Snapshot() Snapshot
}

// DirObserver observes a real download directory. A read error yields an
// empty snapshot and a warning on W; the directory being mid-write is an
// expected condition, never fatal.
type DirObserver struct {
	Dir string

	// PartialExts overrides the in-flight marker extensions.
	PartialExts []string

	// W receives warnings. Defaults to io.Discard when nil.
	W io.Writer
}

// Snapshot enumerates the directory. Repeated calls against an unchanged
// directory return identical snapshots; nothing is cached.
func (o *DirObserver) Snapshot() Snapshot {
	snap := Snapshot{
		Completed: make(map[string]int64),
		Partials:  make(map[string]int64),
	}

	entries, err := os.ReadDir(o.Dir)
	if err != nil {
		o.warnf("warning: reading download directory %s: %v\n", o.Dir, err)
		return snap
	}

	partialExts := o.PartialExts
	if len(partialExts) == 0 {
		partialExts = defaultPartialExts
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		info, err := entry.Info()
		if err != nil {
			// File vanished between ReadDir and Stat: a completed
			// rename or a cancelled download. Skip it.
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case ext == completedExt:
			snap.Completed[name] = info.Size()
		case containsExt(partialExts, ext):
			snap.Partials[name] = info.Size()
		}
	}
	return snap
}

func (o *DirObserver) warnf(format string, args ...any) {
	w := o.W
	if w == nil {
		w = io.Discard
	}
	fmt.Fprintf(w, format, args...)
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
