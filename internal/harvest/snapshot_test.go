// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	data := make([]byte, size)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirObserverSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paper.pdf", 120)
	writeFile(t, dir, "empty.pdf", 0)
	writeFile(t, dir, "inflight.pdf.crdownload", 40)
	writeFile(t, dir, "firefox.part", 10)
	writeFile(t, dir, "notes.txt", 5)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	obs := &DirObserver{Dir: dir}
	snap := obs.Snapshot()

	wantCompleted := map[string]int64{"paper.pdf": 120, "empty.pdf": 0}
	if !reflect.DeepEqual(snap.Completed, wantCompleted) {
		t.Errorf("Completed = %v, want %v", snap.Completed, wantCompleted)
	}
	wantPartials := map[string]int64{"inflight.pdf.crdownload": 40, "firefox.part": 10}
	if !reflect.DeepEqual(snap.Partials, wantPartials) {
		t.Errorf("Partials = %v, want %v", snap.Partials, wantPartials)
	}
	if !snap.HasPartial() {
		t.Error("HasPartial should be true")
	}
}

func TestDirObserverDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", 10)
	writeFile(t, dir, "b.pdf.crdownload", 20)

	obs := &DirObserver{Dir: dir}
	first := obs.Snapshot()
	second := obs.Snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated snapshots differ: %v vs %v", first, second)
	}
}

func TestDirObserverMissingDirIsEmpty(t *testing.T) {
	var log strings.Builder
	obs := &DirObserver{Dir: filepath.Join(t.TempDir(), "nope"), W: &log}
	snap := obs.Snapshot()

	if len(snap.Completed) != 0 || len(snap.Partials) != 0 {
		t.Errorf("missing directory should yield an empty snapshot, got %v", snap)
	}
	if !strings.Contains(log.String(), "warning:") {
		t.Errorf("read failure should be logged, got %q", log.String())
	}
}

func TestDirObserverCustomPartialExt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dl.pdf.download", 30)
	writeFile(t, dir, "dl.pdf.crdownload", 40)

	obs := &DirObserver{Dir: dir, PartialExts: []string{".download"}}
	snap := obs.Snapshot()

	if _, ok := snap.Partials["dl.pdf.download"]; !ok {
		t.Error("custom partial extension not observed")
	}
	if _, ok := snap.Partials["dl.pdf.crdownload"]; ok {
		t.Error("default extension should not apply when overridden")
	}
}

func TestNewSince(t *testing.T) {
	baseline := map[string]int64{"old.pdf": 100}
	s := snap(map[string]int64{"old.pdf": 100, "b.pdf": 5, "a.pdf": 7}, nil)

	got := s.NewSince(baseline)
	want := []string{"a.pdf", "b.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewSince = %v, want %v", got, want)
	}
}
