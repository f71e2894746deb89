// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"io"
	"strings"
	"testing"
	"time"
)

// fakeClock advances only when Sleep is called, so poll loops run
// instantly in tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time        { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

// scriptObserver replays a fixed snapshot sequence; once exhausted it
// repeats the last snapshot.
type scriptObserver struct {
	snaps []Snapshot
	i     int
}

func (o *scriptObserver) Snapshot() Snapshot {
	if o.i < len(o.snaps) {
		s := o.snaps[o.i]
		o.i++
		return s
	}
	return o.snaps[len(o.snaps)-1]
}

func snap(completed, partials map[string]int64) Snapshot {
	if completed == nil {
		completed = map[string]int64{}
	}
	if partials == nil {
		partials = map[string]int64{}
	}
	return Snapshot{Completed: completed, Partials: partials}
}

var testMonitorCfg = MonitorConfig{
	StallTimeout: 5 * time.Second,
	MaxTimeout:   60 * time.Second,
	PollInterval: 1 * time.Second,
}

const startWindow = 3 * time.Second

func TestMonitorCompletesAfterPartialGrowth(t *testing.T) {
	obs := &scriptObserver{snaps: []Snapshot{
		snap(nil, nil), // baseline
		snap(nil, nil),
		snap(nil, map[string]int64{"doc1.pdf.crdownload": 100}),
		snap(nil, map[string]int64{"doc1.pdf.crdownload": 200}),
		snap(nil, map[string]int64{"doc1.pdf.crdownload": 300}),
		snap(map[string]int64{"doc1.pdf": 120}, nil),
	}}

	m := NewMonitor(obs, newFakeClock(), testMonitorCfg, io.Discard)
	res := m.Await(startWindow)

	if res.Phase != PhaseCompleted {
		t.Fatalf("Phase = %v, want %v", res.Phase, PhaseCompleted)
	}
	if res.Filename != "doc1.pdf" {
		t.Errorf("Filename = %q, want %q", res.Filename, "doc1.pdf")
	}
	if res.Bytes != 120 {
		t.Errorf("Bytes = %d, want 120", res.Bytes)
	}
}

func TestMonitorNotStartedWithinWindow(t *testing.T) {
	obs := &scriptObserver{snaps: []Snapshot{
		snap(nil, nil),
	}}

	clock := newFakeClock()
	start := clock.Now()
	m := NewMonitor(obs, clock, testMonitorCfg, io.Discard)
	res := m.Await(startWindow)

	if res.Phase != PhaseNotStarted {
		t.Fatalf("Phase = %v, want %v", res.Phase, PhaseNotStarted)
	}
	if elapsed := clock.Now().Sub(start); elapsed > startWindow+testMonitorCfg.PollInterval {
		t.Errorf("waited %v, start window is %v", elapsed, startWindow)
	}
}

func TestMonitorNotStartedIsFinalForThatRun(t *testing.T) {
	// The file appears only after the start window; the first run must
	// not flip, the next run against the same baseline picks it up.
	empties := make([]Snapshot, 6)
	for i := range empties {
		empties[i] = snap(nil, nil)
	}
	obs := &scriptObserver{snaps: append(empties,
		snap(map[string]int64{"late.pdf": 50}, nil),
	)}

	m := NewMonitor(obs, newFakeClock(), testMonitorCfg, io.Discard)

	if res := m.Await(startWindow); res.Phase != PhaseNotStarted {
		t.Fatalf("first run Phase = %v, want %v", res.Phase, PhaseNotStarted)
	}
	res := m.Await(startWindow)
	if res.Phase != PhaseCompleted {
		t.Fatalf("second run Phase = %v, want %v", res.Phase, PhaseCompleted)
	}
	if res.Filename != "late.pdf" {
		t.Errorf("Filename = %q, want %q", res.Filename, "late.pdf")
	}
}

func TestMonitorStalledWhenSizeStopsChanging(t *testing.T) {
	obs := &scriptObserver{snaps: []Snapshot{
		snap(nil, nil),
		snap(nil, map[string]int64{"doc.pdf.crdownload": 100}),
		snap(nil, map[string]int64{"doc.pdf.crdownload": 200}),
		// Size frozen from here on.
		snap(nil, map[string]int64{"doc.pdf.crdownload": 200}),
	}}

	clock := newFakeClock()
	m := NewMonitor(obs, clock, testMonitorCfg, io.Discard)
	start := clock.Now()
	res := m.Await(startWindow)

	if res.Phase != PhaseStalled {
		t.Fatalf("Phase = %v, want %v", res.Phase, PhaseStalled)
	}
	// Stall must resolve well before the overall budget.
	if elapsed := clock.Now().Sub(start); elapsed >= testMonitorCfg.MaxTimeout {
		t.Errorf("stall took %v, should resolve before MaxTimeout %v", elapsed, testMonitorCfg.MaxTimeout)
	}
}

func TestMonitorZeroByteFileNeverCompletes(t *testing.T) {
	obs := &scriptObserver{snaps: []Snapshot{
		snap(nil, nil),
		snap(map[string]int64{"empty.pdf": 0}, nil),
	}}

	m := NewMonitor(obs, newFakeClock(), testMonitorCfg, io.Discard)
	res := m.Await(startWindow)

	if res.Phase != PhaseTimedOut {
		t.Fatalf("Phase = %v, want %v", res.Phase, PhaseTimedOut)
	}
	if res.Filename != "" {
		t.Errorf("Filename = %q, want empty", res.Filename)
	}
}

func TestMonitorTimesOutWithoutResolution(t *testing.T) {
	// A partial marker that keeps growing forever: progress never
	// stalls, the file never materializes, the budget runs out.
	obs := &growingObserver{}

	clock := newFakeClock()
	cfg := testMonitorCfg
	cfg.StallTimeout = 10 * time.Minute // never stalls
	m := NewMonitor(obs, clock, cfg, io.Discard)
	res := m.Await(startWindow)

	if res.Phase != PhaseTimedOut {
		t.Fatalf("Phase = %v, want %v", res.Phase, PhaseTimedOut)
	}
}

// growingObserver reports a partial file whose size strictly increases
// on every snapshot.
type growingObserver struct {
	n int64
}

func (o *growingObserver) Snapshot() Snapshot {
	o.n++
	if o.n == 1 {
		return snap(nil, nil) // baseline
	}
	return snap(nil, map[string]int64{"doc.pdf.crdownload": o.n * 100})
}

func TestMonitorPicksSmallestOnBurst(t *testing.T) {
	obs := &scriptObserver{snaps: []Snapshot{
		snap(nil, nil),
		snap(map[string]int64{"b.pdf": 200, "a.pdf": 100}, nil),
	}}

	var log strings.Builder
	m := NewMonitor(obs, newFakeClock(), testMonitorCfg, &log)
	res := m.Await(startWindow)

	if res.Phase != PhaseCompleted {
		t.Fatalf("Phase = %v, want %v", res.Phase, PhaseCompleted)
	}
	if res.Filename != "a.pdf" {
		t.Errorf("Filename = %q, want %q", res.Filename, "a.pdf")
	}
	if !strings.Contains(log.String(), "2 new files") {
		t.Errorf("burst should be logged, got %q", log.String())
	}
}

func TestMonitorIgnoresBaselineFiles(t *testing.T) {
	baseline := map[string]int64{"old.pdf": 500}
	obs := &scriptObserver{snaps: []Snapshot{
		snap(baseline, nil), // baseline capture
		snap(baseline, nil),
		snap(map[string]int64{"old.pdf": 500, "new.pdf": 80}, nil),
	}}

	m := NewMonitor(obs, newFakeClock(), testMonitorCfg, io.Discard)
	res := m.Await(startWindow)

	if res.Phase != PhaseCompleted {
		t.Fatalf("Phase = %v, want %v", res.Phase, PhaseCompleted)
	}
	if res.Filename != "new.pdf" {
		t.Errorf("Filename = %q, want %q", res.Filename, "new.pdf")
	}
}
