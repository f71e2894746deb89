// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamal/oa-harvest/pkg/types"
)

// fakeWebDriver emulates the handful of W3C endpoints Remote uses and
// records every request for assertions.
type fakeWebDriver struct {
	t *testing.T

	sessionID string
	requests  []recordedRequest

	title  string
	source string
}

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newFakeWebDriver(t *testing.T) (*fakeWebDriver, *httptest.Server) {
	t.Helper()
	fake := &fakeWebDriver{t: t, sessionID: "session-1"}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeWebDriver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.requests = append(f.requests, rec)

	writeValue := func(v any) {
		json.NewEncoder(w).Encode(map[string]any{"value": v})
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/session":
		writeValue(map[string]string{"sessionId": f.sessionID})
	case r.URL.Path == "/session/"+f.sessionID+"/url":
		if r.Method == http.MethodPost {
			writeValue(nil)
		} else {
			writeValue("https://example.org/paper")
		}
	case r.URL.Path == "/session/"+f.sessionID+"/title":
		writeValue(f.title)
	case r.URL.Path == "/session/"+f.sessionID+"/source":
		writeValue(f.source)
	case r.URL.Path == "/session/"+f.sessionID+"/actions":
		writeValue(nil)
	case r.Method == http.MethodDelete && r.URL.Path == "/session/"+f.sessionID:
		writeValue(nil)
	default:
		w.WriteHeader(http.StatusNotFound)
		writeValue(map[string]string{"error": "unknown command", "message": r.URL.Path})
	}
}

func (f *fakeWebDriver) find(method, path string) (recordedRequest, bool) {
	for _, req := range f.requests {
		if req.Method == method && req.Path == path {
			return req, true
		}
	}
	return recordedRequest{}, false
}

func newTestRemote(t *testing.T, server *httptest.Server, cfg types.BrowserConfig) *Remote {
	t.Helper()
	cfg.Endpoint = server.URL
	remote, err := NewRemote(server.Client(), cfg)
	require.NoError(t, err)
	return remote
}

func TestNewRemoteSendsDownloadCapabilities(t *testing.T) {
	fake, server := newFakeWebDriver(t)

	dir := t.TempDir()
	newTestRemote(t, server, types.BrowserConfig{DownloadDir: dir, Headless: true})

	req, ok := fake.find(http.MethodPost, "/session")
	require.True(t, ok, "no session request recorded")

	caps := req.Body["capabilities"].(map[string]any)["alwaysMatch"].(map[string]any)
	assert.Equal(t, "chrome", caps["browserName"])

	opts := caps["goog:chromeOptions"].(map[string]any)
	prefs := opts["prefs"].(map[string]any)
	assert.Equal(t, dir, prefs["download.default_directory"])
	assert.Equal(t, false, prefs["download.prompt_for_download"])
	assert.Equal(t, true, prefs["plugins.always_open_pdf_externally"])

	args := opts["args"].([]any)
	assert.Contains(t, args, "--headless=new")
	assert.Contains(t, args, "--no-sandbox")
}

func TestNewRemoteNoSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": map[string]string{}})
	}))
	defer server.Close()

	_, err := NewRemote(server.Client(), types.BrowserConfig{Endpoint: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session id")
}

func TestRemoteNavigateAndReads(t *testing.T) {
	fake, server := newFakeWebDriver(t)
	fake.title = "Some Paper"
	fake.source = "<html><body>abstract</body></html>"

	remote := newTestRemote(t, server, types.BrowserConfig{DownloadDir: t.TempDir()})

	require.NoError(t, remote.Navigate("https://example.org/paper"))
	nav, ok := fake.find(http.MethodPost, "/session/session-1/url")
	require.True(t, ok)
	assert.Equal(t, "https://example.org/paper", nav.Body["url"])

	url, err := remote.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/paper", url)

	title, err := remote.PageTitle()
	require.NoError(t, err)
	assert.Equal(t, "Some Paper", title)

	source, err := remote.PageSource()
	require.NoError(t, err)
	assert.Equal(t, fake.source, source)
}

func TestRemoteSendKeyCombo(t *testing.T) {
	fake, server := newFakeWebDriver(t)
	remote := newTestRemote(t, server, types.BrowserConfig{DownloadDir: t.TempDir()})

	require.NoError(t, remote.SendKeyCombo(KeyControl, "s"))

	post, ok := fake.find(http.MethodPost, "/session/session-1/actions")
	require.True(t, ok, "no actions request recorded")

	seq := post.Body["actions"].([]any)[0].(map[string]any)
	assert.Equal(t, "key", seq["type"])

	actions := seq["actions"].([]any)
	require.Len(t, actions, 4)
	want := []struct{ typ, value string }{
		{"keyDown", KeyControl},
		{"keyDown", "s"},
		{"keyUp", "s"},
		{"keyUp", KeyControl},
	}
	for i, w := range want {
		act := actions[i].(map[string]any)
		assert.Equal(t, w.typ, act["type"], "action %d", i)
		assert.Equal(t, w.value, act["value"], "action %d", i)
	}

	_, ok = fake.find(http.MethodDelete, "/session/session-1/actions")
	assert.True(t, ok, "input state was not released")
}

func TestRemoteSendKeyComboEmpty(t *testing.T) {
	fake, server := newFakeWebDriver(t)
	remote := newTestRemote(t, server, types.BrowserConfig{DownloadDir: t.TempDir()})

	before := len(fake.requests)
	require.NoError(t, remote.SendKeyCombo())
	assert.Equal(t, before, len(fake.requests), "empty combo must not hit the wire")
}

func TestRemoteShutdown(t *testing.T) {
	fake, server := newFakeWebDriver(t)
	remote := newTestRemote(t, server, types.BrowserConfig{DownloadDir: t.TempDir()})

	require.NoError(t, remote.Shutdown())
	_, ok := fake.find(http.MethodDelete, "/session/session-1")
	assert.True(t, ok, "session was not deleted")
}

func TestRemoteErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/session" {
			json.NewEncoder(w).Encode(map[string]any{"value": map[string]string{"sessionId": "s"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"value":{"error":"no such window","message":"window was closed"}}`)
	}))
	defer server.Close()

	remote, err := NewRemote(server.Client(), types.BrowserConfig{Endpoint: server.URL, DownloadDir: t.TempDir()})
	require.NoError(t, err)

	err = remote.Navigate("https://example.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such window")
	assert.Contains(t, err.Error(), "window was closed")
}
