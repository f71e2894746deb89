// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Phase is the observable state of one download, derived purely from
// repeated directory snapshots. Wall-clock alone only ever produces the
// stall and timeout phases.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseStarting
	PhaseInProgress
	PhaseStalled
	PhaseCompleted
	PhaseTimedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseStarting:
		return "starting"
	case PhaseInProgress:
		return "in_progress"
	case PhaseStalled:
		return "stalled"
	case PhaseCompleted:
		return "completed"
	case PhaseTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Result is the terminal state of one monitor run. Filename and Bytes
// are set only for PhaseCompleted.
type Result struct {
	Phase    Phase
	Filename string
	Bytes    int64
}

// MonitorConfig tunes the completion monitor. All four values are
// configuration, not constants.
type MonitorConfig struct {
	// StallTimeout is how long a partial file may sit at the same size
	// before the run resolves as stalled.
	StallTimeout time.Duration

	// MaxTimeout is the total wait budget for one Await call.
	MaxTimeout time.Duration

	// PollInterval is the snapshot cadence.
	PollInterval time.Duration
}

// Monitor watches a download directory for the outcome of one attempt.
// The baseline of known completed files is captured at construction,
// which must happen immediately before navigation; a Monitor is not
// reused across attempts.
type Monitor struct {
	obs      Observer
	clock    Clock
	cfg      MonitorConfig
	baseline map[string]int64
	w        io.Writer
}

// NewMonitor captures the baseline snapshot and returns a monitor ready
// for Await.
func NewMonitor(obs Observer, clock Clock, cfg MonitorConfig, w io.Writer) *Monitor {
	baseline := make(map[string]int64)
	for name, size := range obs.Snapshot().Completed {
		baseline[name] = size
	}
	return &Monitor{obs: obs, clock: clock, cfg: cfg, baseline: baseline, w: w}
}

// Await polls the directory until the download resolves.
//
// Phase 1 (start detection) polls until a partial marker or a new
// completed file appears, or startTimeout elapses; the timeout resolves
// as PhaseNotStarted so the caller can fall back to a manual trigger
// quickly instead of burning the full budget. The start timeout is a
// hard boundary: once NotStarted is returned, a later appearance belongs
// to the caller's next Await.
//
// Phase 2 polls until the partial marker stops growing for longer than
// StallTimeout (PhaseStalled), a new completed file of non-zero size
// exists with no partial marker present (PhaseCompleted), or MaxTimeout
// elapses (PhaseTimedOut). Zero-byte files never complete: they are
// unflushed writes or saved error pages.
func (m *Monitor) Await(startTimeout time.Duration) Result {
	start := m.clock.Now()
	overallDeadline := start.Add(m.cfg.MaxTimeout)
	startDeadline := start.Add(startTimeout)

	// Phase 1: start detection.
	var snap Snapshot
	for {
		snap = m.obs.Snapshot()
		if snap.HasPartial() || len(snap.NewSince(m.baseline)) > 0 {
			break
		}
		if !m.clock.Now().Before(startDeadline) {
			return Result{Phase: PhaseNotStarted}
		}
		m.clock.Sleep(m.cfg.PollInterval)
	}

	// Phase 2: progress and completion.
	lastProgress := m.clock.Now()
	lastSize := int64(-1)
	for {
		switch {
		case snap.HasPartial():
			name := smallestKey(snap.Partials)
			size := snap.Partials[name]
			if size != lastSize {
				lastSize = size
				lastProgress = m.clock.Now()
			} else if m.clock.Now().Sub(lastProgress) > m.cfg.StallTimeout {
				// Stall resolves on its own clock, before and
				// independently of the overall budget.
				return Result{Phase: PhaseStalled, Filename: name}
			}

		default:
			if name, size, ok := m.pickCompleted(snap); ok {
				return Result{Phase: PhaseCompleted, Filename: name, Bytes: size}
			}
			// Neither marker nor file: the race window between marker
			// removal and file materialization. Keep polling.
		}

		if !m.clock.Now().Before(overallDeadline) {
			return Result{Phase: PhaseTimedOut}
		}
		m.clock.Sleep(m.cfg.PollInterval)
		snap = m.obs.Snapshot()
	}
}

// pickCompleted selects the completed file for this attempt from a
// snapshot: the lexicographically smallest new non-zero file. A burst of
// several new files is logged; a single attempt never yields more than
// one file.
func (m *Monitor) pickCompleted(snap Snapshot) (string, int64, bool) {
	names := snap.NewSince(m.baseline)

	var candidates []string
	for _, name := range names {
		if snap.Completed[name] > 0 {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", 0, false
	}
	if len(candidates) > 1 {
		fmt.Fprintf(m.w, "warning: %d new files appeared in one interval, keeping %s\n",
			len(candidates), candidates[0])
	}
	return candidates[0], snap.Completed[candidates[0]], true
}

func smallestKey(sizes map[string]int64) string {
	keys := make([]string, 0, len(sizes))
	for k := range sizes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}
