// internal/browser/browser_helper_test.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiverify/internal/config"
)

const (
	defaultBrowserTestTimeout = 90 * time.Second
	shutdownTimeout           = 15 * time.Second
)

// chromeCandidates are the binary names probed on PATH when UIVERIFY_TEST_CHROME is unset.
var chromeCandidates = []string{
	"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome",
}

// findChrome returns a browser executable, or "" when none is installed.
func findChrome() string {
	if p := os.Getenv("UIVERIFY_TEST_CHROME"); p != "" {
		return p
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

type testFixture struct {
	Engine  *Engine
	Config  *config.Config
	Logger  *zap.Logger
	Server  *httptest.Server
	RootCtx context.Context
}

// newTestFixture starts the fixture site and an engine bound to the test's lifetime. Tests
// that need a real browser are skipped in -short mode and when no Chrome is available.
func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("browser integration test skipped in short mode")
	}
	chrome := findChrome()
	if chrome == "" {
		t.Skip("no Chrome or Chromium binary found; set UIVERIFY_TEST_CHROME to run browser tests")
	}

	logger := zaptest.NewLogger(t).With(zap.String("test", t.Name()))

	cfg := config.NewDefaultConfig()
	cfg.Browser.ExecPath = chrome
	cfg.Browser.NavigationTimeout = 30 * time.Second

	deadline, ok := t.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultBrowserTestTimeout)
	}
	rootCtx, cancel := context.WithDeadline(context.Background(), deadline.Add(-time.Second))

	server := httptest.NewServer(fixtureMux())
	engine := NewEngine(cfg, logger)

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		require.NoError(t, engine.Shutdown(shutdownCtx))
		server.Close()
		cancel()
	})

	return &testFixture{Engine: engine, Config: cfg, Logger: logger, Server: server, RootCtx: rootCtx}
}

func (f *testFixture) URL(path string) string {
	return f.Server.URL + path
}

func fixturePage(body string) string {
	return fmt.Sprintf(`<!doctype html><html><head><meta charset="utf-8"><title>fixture</title></head><body>%s</body></html>`, body)
}

func fixtureMux() *http.ServeMux {
	mux := http.NewServeMux()
	serve := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, fixturePage(body))
		})
	}

	serve("/store/cart", `
		<h1>Your Cart</h1>
		<button id="pay" onclick="setTimeout(() => document.body.insertAdjacentHTML('beforeend', '<h2>Shipping Address</h2>'), 100)">Proceed to Payment</button>
		<button aria-label="Close cart">x</button>
		<div role="button" style="display:none">Proceed to Payment (hidden)</div>
		<label for="email">Email address</label><input id="email" type="email">
	`)
	serve("/covered", `
		<button style="position:absolute;top:20px;left:20px;width:120px;height:40px">Buy</button>
		<div id="overlay" class="modal" style="position:fixed;inset:0;background:rgba(0,0,0,.5)"></div>
	`)
	serve("/zero", `<button style="width:0;height:0;padding:0;border:0;overflow:hidden">Tiny</button>`)
	serve("/theme", `
		<button role="switch" aria-checked="false" aria-label="Dark mode"
			onclick="document.documentElement.classList.toggle('dark'); this.setAttribute('aria-checked', String(document.documentElement.classList.contains('dark')))">Theme</button>
	`)
	mux.HandleFunc("/set-cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "cart", Value: "full", Path: "/"})
		fmt.Fprint(w, fixturePage(`<h1>cookie set</h1>`))
	})
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		state := "none"
		if c, err := r.Cookie("cart"); err == nil {
			state = c.Value
		}
		fmt.Fprint(w, fixturePage(`<h1>cookie `+state+`</h1>`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/not-found-page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, fixturePage(`<h1>Nothing here</h1>`))
	})
	return mux
}

// closedURL returns an http URL nothing listens on.
func closedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}
