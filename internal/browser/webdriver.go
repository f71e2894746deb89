// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/mkamal/oa-harvest/pkg/types"
)

// Remote drives a browser through the W3C WebDriver wire protocol
// (JSON over HTTP against a chromedriver endpoint). The endpoint comes
// from configuration so tests can substitute an httptest server.
type Remote struct {
	base      string
	client    *http.Client
	sessionID string
}

// NewRemote opens a browser session with Chrome capabilities that force
// silent PDF download into cfg.DownloadDir. A failure here is the only
// fatal startup condition of a harvest run.
func NewRemote(client *http.Client, cfg types.BrowserConfig) (*Remote, error) {
	r := &Remote{
		base:   strings.TrimRight(cfg.Endpoint, "/"),
		client: client,
	}

	body := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": chromeCapabilities(cfg),
		},
	}
	var resp struct {
		Value struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	if err := r.do(http.MethodPost, "/session", body, &resp); err != nil {
		return nil, fmt.Errorf("opening browser session: %w", err)
	}
	if resp.Value.SessionID == "" {
		return nil, fmt.Errorf("webdriver at %s returned no session id", r.base)
	}
	r.sessionID = resp.Value.SessionID
	return r, nil
}

// chromeCapabilities builds the capability object: stability arguments
// and the download preferences that make Chrome save PDFs into the
// download directory instead of rendering them.
func chromeCapabilities(cfg types.BrowserConfig) map[string]any {
	args := []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--window-size=1920,1080",
		"--no-first-run",
		"--password-store=basic",
	}
	if cfg.Headless {
		args = append(args, "--headless=new")
	}

	downloadDir := cfg.DownloadDir
	if abs, err := filepath.Abs(downloadDir); err == nil {
		downloadDir = abs
	}
	prefs := map[string]any{
		"download.default_directory":         downloadDir,
		"download.prompt_for_download":       false,
		"download.directory_upgrade":         true,
		"plugins.always_open_pdf_externally": true,
		"profile.default_content_setting_values.automatic_downloads": 1,
	}

	return map[string]any{
		"browserName": "chrome",
		"goog:chromeOptions": map[string]any{
			"args":  args,
			"prefs": prefs,
		},
	}
}

// Navigate loads url in the session's window.
func (r *Remote) Navigate(url string) error {
	return r.session(http.MethodPost, "/url", map[string]string{"url": url}, nil)
}

// CurrentURL returns the URL currently loaded.
func (r *Remote) CurrentURL() (string, error) {
	return r.stringValue(http.MethodGet, "/url")
}

// PageTitle returns the current page title.
func (r *Remote) PageTitle() (string, error) {
	return r.stringValue(http.MethodGet, "/title")
}

// PageSource returns the serialized DOM of the current page.
func (r *Remote) PageSource() (string, error) {
	return r.stringValue(http.MethodGet, "/source")
}

// SendKeyCombo dispatches a key-action sequence: keyDown for each key in
// order, keyUp in reverse, then a release of any leftover input state.
func (r *Remote) SendKeyCombo(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	var actions []map[string]string
	for _, k := range keys {
		actions = append(actions, map[string]string{"type": "keyDown", "value": k})
	}
	for i := len(keys) - 1; i >= 0; i-- {
		actions = append(actions, map[string]string{"type": "keyUp", "value": keys[i]})
	}

	body := map[string]any{
		"actions": []map[string]any{
			{
				"type":    "key",
				"id":      "keyboard",
				"actions": actions,
			},
		},
	}
	if err := r.session(http.MethodPost, "/actions", body, nil); err != nil {
		return err
	}
	return r.session(http.MethodDelete, "/actions", nil, nil)
}

// Shutdown ends the session and closes the browser.
func (r *Remote) Shutdown() error {
	return r.session(http.MethodDelete, "", nil, nil)
}

// session issues a request against the current session.
func (r *Remote) session(method, path string, body, out any) error {
	return r.do(method, "/session/"+r.sessionID+path, body, out)
}

// stringValue fetches an endpoint whose value payload is a plain string.
func (r *Remote) stringValue(method, path string) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := r.session(method, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// do executes one wire call. Non-2xx responses are decoded into the
// protocol's error envelope so callers see "error: message" rather than
// a bare status code.
func (r *Remote) do(method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	} else if method == http.MethodPost {
		// Chromedriver rejects POSTs without a JSON body.
		payload = []byte("{}")
	}

	req, err := http.NewRequest(method, r.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("webdriver request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var werr struct {
			Value struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			} `json:"value"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&werr); decodeErr == nil && werr.Value.Error != "" {
			return fmt.Errorf("webdriver %s %s: %s: %s", method, path, werr.Value.Error, werr.Value.Message)
		}
		return fmt.Errorf("webdriver %s %s: HTTP %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parsing webdriver response: %w", err)
		}
	}
	return nil
}
