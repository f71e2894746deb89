// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// challengeMarkers are substrings whose presence in page text indicates
// a bot-verification interstitial rather than the target content.
var challengeMarkers = []string{
	"captcha",
	"g-recaptcha",
	"h-captcha",
	"cf-challenge",
	"verify you are human",
	"checking your browser",
}

// Challenged reports whether pageText looks like a bot-challenge page.
// Matching is a case-insensitive substring scan against a fixed marker set.
func Challenged(pageText string) bool {
	lower := strings.ToLower(pageText)
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// clearancePollInterval is the fixed cadence of the clearance wait.
const clearancePollInterval = 5 * time.Second

// ClearanceConfig tunes the bounded challenge-clearance wait.
type ClearanceConfig struct {
	// MaxWait bounds the total wait for a human to clear the challenge.
	MaxWait time.Duration

	// FailOpen controls what a page-read failure mid-wait means. True
	// assumes navigation moved past the challenge and reports cleared;
	// false reports unresolved. The optimistic default trades a possible
	// wasted attempt for never looping on a dead session.
	FailOpen bool
}

// AwaitClearance polls poll every 5 seconds until the page no longer
// matches a challenge marker (true) or cfg.MaxWait elapses (false).
// Clearing the challenge requires human action in the browser; nothing
// here attempts to solve it. A poll error resolves per cfg.FailOpen.
func AwaitClearance(clock Clock, poll func() (string, error), cfg ClearanceConfig, w io.Writer) bool {
	fmt.Fprintf(w, "challenge detected, waiting up to %s for manual clearance\n", cfg.MaxWait)

	deadline := clock.Now().Add(cfg.MaxWait)
	for {
		clock.Sleep(clearancePollInterval)

		pageText, err := poll()
		if err != nil {
			if cfg.FailOpen {
				fmt.Fprintf(w, "warning: page read failed during challenge wait, assuming cleared: %v\n", err)
				return true
			}
			fmt.Fprintf(w, "warning: page read failed during challenge wait: %v\n", err)
			return false
		}
		if !Challenged(pageText) {
			fmt.Fprintln(w, "challenge cleared")
			return true
		}
		if !clock.Now().Before(deadline) {
			fmt.Fprintln(w, "challenge clearance timed out")
			return false
		}
	}
}
