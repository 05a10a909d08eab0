// internal/browser/allocator.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/uiverify/internal/config"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
)

// allocatorFlags computes the command line flags passed to every launched browser.
// Values are either bool (present or absent) or string.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                               cfg.Headless,
		"hide-scrollbars":                        cfg.Headless,
		"mute-audio":                             true,
		"disable-gpu":                            true,
		"no-sandbox":                             true,
		"disable-dev-shm-usage":                  true,
		"no-first-run":                           true,
		"no-default-browser-check":               true,
		"disable-extensions":                     true,
		"disable-popup-blocking":                 true,
		"disable-background-networking":          true,
		"disable-background-timer-throttling":    true,
		"disable-backgrounding-occluded-windows": true,
		"disable-renderer-backgrounding":         true,
		"enable-automation":                      true,
	}

	width, height := defaultViewportWidth, defaultViewportHeight
	if w, ok := cfg.Viewport["width"]; ok && w > 0 {
		width = w
	}
	if h, ok := cfg.Viewport["height"]; ok && h > 0 {
		height = h
	}
	flags["window-size"] = fmt.Sprintf("%d,%d", width, height)

	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}

	if cfg.DisableCache {
		flags["disk-cache-size"] = "0"
		flags["media-cache-size"] = "0"
		flags["disable-cache"] = true
	}

	// Pass-through args win over everything above.
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}

// DefaultAllocatorOptions builds the exec allocator options for a browser configuration.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, 24)
	for name, value := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
