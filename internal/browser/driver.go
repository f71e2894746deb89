// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser holds the driver boundary between the acquisition
// state machine and the browser session, plus a W3C WebDriver client
// that implements it against a chromedriver endpoint.
package browser

// Driver is the capability surface the harvest state machine needs from
// a browser session. Implementations own the session lifecycle; the
// state machine never sees wire-level detail.
type Driver interface {
	Navigate(url string) error
	CurrentURL() (string, error)
	PageTitle() (string, error)
	PageSource() (string, error)

	// SendKeyCombo presses the given keys in order and releases them in
	// reverse, e.g. SendKeyCombo(KeyControl, "s") for the save-page
	// shortcut.
	SendKeyCombo(keys ...string) error

	Shutdown() error
}

// WebDriver modifier key codepoints (W3C webdriver keyboard actions).
const (
	KeyControl = "\uE009"
	KeyShift   = "\uE008"
	KeyAlt     = "\uE00A"
)
