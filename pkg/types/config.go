// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that talk to web APIs.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "oa-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// WorksConfig holds settings for the OpenAlex works listing stage.
type WorksConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is sent as the mailto parameter for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// Count is the number of work records to collect (default 100).
	Count int `json:"count" yaml:"count"`

	// PerPage is the OpenAlex page size (default 100, capped at 200).
	PerPage int `json:"per_page" yaml:"per_page"`
}

// DelayPolicy describes a humanizing random delay drawn uniformly from
// [Min, Max]. When Enabled is false the delay is always zero. Distinct
// policies govern the pre-navigation wait, the manual-save wait, and the
// inter-URL wait; they never share state.
type DelayPolicy struct {
	Min     time.Duration `json:"min" yaml:"min"`
	Max     time.Duration `json:"max" yaml:"max"`
	Enabled bool          `json:"enabled" yaml:"enabled"`
}

// BrowserConfig holds settings for the WebDriver session.
type BrowserConfig struct {
	// Endpoint is the WebDriver server base URL (e.g. "http://localhost:9515").
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// DownloadDir is the directory the browser saves files into.
	DownloadDir string `json:"download_dir" yaml:"download_dir"`

	// Headless runs the browser without a visible window. Challenge
	// clearance needs a human, so headless runs usually disable it.
	Headless bool `json:"headless" yaml:"headless"`

	// Timeout bounds individual WebDriver wire calls.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// HarvestConfig holds settings for the acquisition state machine.
type HarvestConfig struct {
	// DownloadDir is the directory observed for produced files. It must
	// match the browser's download directory.
	DownloadDir string `json:"download_dir" yaml:"download_dir"`

	// SettleWait is the fixed page-load grace period after navigation.
	SettleWait time.Duration `json:"settle_wait" yaml:"settle_wait"`

	// StartTimeout bounds start detection (phase 1) of the completion monitor.
	StartTimeout time.Duration `json:"start_timeout" yaml:"start_timeout"`

	// StallTimeout is how long a partial file may sit at the same size
	// before the download counts as stalled.
	StallTimeout time.Duration `json:"stall_timeout" yaml:"stall_timeout"`

	// MaxTimeout is the total wait budget for one monitor run.
	MaxTimeout time.Duration `json:"max_timeout" yaml:"max_timeout"`

	// PollInterval is the filesystem polling cadence.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// ChallengeWait bounds the human-assisted challenge clearance wait.
	ChallengeWait time.Duration `json:"challenge_wait" yaml:"challenge_wait"`

	// ChallengeFailOpen treats a page-read failure during the clearance
	// wait as "cleared" so the attempt continues rather than loops.
	ChallengeFailOpen bool `json:"challenge_fail_open" yaml:"challenge_fail_open"`

	// PreNavDelay is the humanizing delay applied before navigation.
	PreNavDelay DelayPolicy `json:"pre_nav_delay" yaml:"pre_nav_delay"`

	// SaveDelay is the humanizing delay applied before the manual
	// save-page trigger.
	SaveDelay DelayPolicy `json:"save_delay" yaml:"save_delay"`

	// InterURLDelay is the humanizing delay applied between URLs.
	InterURLDelay DelayPolicy `json:"inter_url_delay" yaml:"inter_url_delay"`
}

// LedgerConfig holds settings for the run-history store.
type LedgerConfig struct {
	// DataDir is the base directory for harvest data (contains index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of history rows (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Reference timing defaults for the acquisition state machine.
const (
	DefaultSettleWait    = 2 * time.Second
	DefaultStartTimeout  = 30 * time.Second
	DefaultStallTimeout  = 120 * time.Second
	DefaultMaxTimeout    = 600 * time.Second
	DefaultPollInterval  = 750 * time.Millisecond
	DefaultChallengeWait = 300 * time.Second
)

// DefaultHarvestConfig returns a HarvestConfig with the reference timing
// defaults and humanizing delays enabled.
func DefaultHarvestConfig(downloadDir string) HarvestConfig {
	return HarvestConfig{
		DownloadDir:       downloadDir,
		SettleWait:        DefaultSettleWait,
		StartTimeout:      DefaultStartTimeout,
		StallTimeout:      DefaultStallTimeout,
		MaxTimeout:        DefaultMaxTimeout,
		PollInterval:      DefaultPollInterval,
		ChallengeWait:     DefaultChallengeWait,
		ChallengeFailOpen: true,
		PreNavDelay:       DelayPolicy{Min: 2 * time.Second, Max: 5 * time.Second, Enabled: true},
		SaveDelay:         DelayPolicy{Min: 1 * time.Second, Max: 2 * time.Second, Enabled: true},
		InterURLDelay:     DelayPolicy{Min: 3 * time.Second, Max: 8 * time.Second, Enabled: true},
	}
}
