// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/mkamal/oa-harvest/internal/browser"
	"github.com/mkamal/oa-harvest/pkg/types"
)

// Status is the terminal classification of one acquisition attempt.
type Status int

const (
	StatusSuccess Status = iota
	StatusNotStarted
	StatusStalled
	StatusTimedOut
	StatusBlocked
	StatusDriverFault
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotStarted:
		return "not_started"
	case StatusStalled:
		return "stalled"
	case StatusTimedOut:
		return "timed_out"
	case StatusBlocked:
		return "blocked"
	case StatusDriverFault:
		return "driver_fault"
	default:
		return "unknown"
	}
}

// Outcome is the result of one attempt. No intermediate monitor state
// escapes this boundary: an attempt either succeeded with a filename or
// failed with a reason.
type Outcome struct {
	Status   Status
	Filename string
	Bytes    int64

	// Err carries the underlying driver error for StatusDriverFault.
	Err error
}

// Succeeded reports whether the attempt produced a file.
func (o Outcome) Succeeded() bool { return o.Status == StatusSuccess }

// jitter sleeps for a uniform random duration from the policy's range.
func jitter(clock Clock, p types.DelayPolicy) {
	if !p.Enabled || p.Max <= 0 {
		return
	}
	d := p.Min
	if span := p.Max - p.Min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	clock.Sleep(d)
}

// Attempt runs one end-to-end acquisition for url: humanizing delay,
// navigation, challenge handling, automatic-download detection, and the
// manual save-page fallback. Driver errors are converted to
// StatusDriverFault outcomes; nothing propagates to the caller.
func Attempt(d browser.Driver, obs Observer, clock Clock, cfg types.HarvestConfig, url string, w io.Writer) Outcome {
	jitter(clock, cfg.PreNavDelay)

	// The baseline must predate navigation so an instant download is
	// still observed as new.
	monitor := NewMonitor(obs, clock, MonitorConfig{
		StallTimeout: cfg.StallTimeout,
		MaxTimeout:   cfg.MaxTimeout,
		PollInterval: cfg.PollInterval,
	}, w)

	if err := d.Navigate(url); err != nil {
		return Outcome{Status: StatusDriverFault, Err: fmt.Errorf("navigating to %s: %w", url, err)}
	}

	pageText, err := d.PageSource()
	if err != nil {
		return Outcome{Status: StatusDriverFault, Err: fmt.Errorf("reading page source: %w", err)}
	}
	if Challenged(pageText) {
		clearCfg := ClearanceConfig{MaxWait: cfg.ChallengeWait, FailOpen: cfg.ChallengeFailOpen}
		if !AwaitClearance(clock, d.PageSource, clearCfg, w) {
			return Outcome{Status: StatusBlocked}
		}
	}

	clock.Sleep(cfg.SettleWait)

	res := monitor.Await(cfg.StartTimeout)
	if res.Phase == PhaseCompleted {
		return Outcome{Status: StatusSuccess, Filename: res.Filename, Bytes: res.Bytes}
	}

	if res.Phase == PhaseNotStarted {
		fmt.Fprintln(w, "no automatic download, sending save-page command")
		jitter(clock, cfg.SaveDelay)
		if err := d.SendKeyCombo(browser.KeyControl, "s"); err != nil {
			return Outcome{Status: StatusDriverFault, Err: fmt.Errorf("save-page command: %w", err)}
		}
		// The fallback is the last recourse, so its start window is the
		// full wait budget. Nothing appearing within it is a timeout,
		// not a recoverable state.
		res = monitor.Await(cfg.MaxTimeout)
		if res.Phase == PhaseCompleted {
			return Outcome{Status: StatusSuccess, Filename: res.Filename, Bytes: res.Bytes}
		}
		if res.Phase == PhaseNotStarted {
			res.Phase = PhaseTimedOut
		}
	}

	return Outcome{Status: statusForPhase(res.Phase)}
}

func statusForPhase(p Phase) Status {
	switch p {
	case PhaseStalled:
		return StatusStalled
	case PhaseTimedOut:
		return StatusTimedOut
	default:
		return StatusNotStarted
	}
}
