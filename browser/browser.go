// Package browser manages the headless browser a session owns. Each
// session gets its own instance on its own debugging port, torn down with
// the session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// Debug ports are drawn from [PortMin, PortMax].
const (
	PortMin = 10000
	PortMax = 65535
)

// pageTextLimit caps the text read from one page.
const pageTextLimit = 4096

// Driver is the lifetime contract of a session browser.
type Driver interface {
	// Port is the remote debugging port the instance listens on.
	Port() int
	// PageText renders a page and returns its visible text.
	PageText(ctx context.Context, url string) (string, error)
	// Close tears the instance down. Safe to call more than once.
	Close() error
}

// Config describes one browser instance.
type Config struct {
	Headless bool
	// Stealth reduces the automation fingerprint of the instance.
	Stealth bool
	// Port pins the debugging port. Zero draws a random one.
	Port int
}

// RandomDebugPort returns a port from the session browser range.
func RandomDebugPort() int {
	return PortMin + rand.IntN(PortMax-PortMin+1)
}

// RodDriver drives a Chromium instance through the DevTools protocol.
type RodDriver struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	port     int

	mu     sync.Mutex
	closed bool
}

// New launches a browser instance. The caller owns it and must Close it
// when the session ends.
func New(cfg Config) (*RodDriver, error) {
	port := cfg.Port
	if port == 0 {
		port = RandomDebugPort()
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Set(flags.RemoteDebuggingPort, strconv.Itoa(port))
	if cfg.Stealth {
		l = l.Set("disable-blink-features", "AutomationControlled")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	slog.Debug("browser started", "port", port, "headless", cfg.Headless)
	return &RodDriver{
		browser:  b,
		launcher: l,
		port:     port,
	}, nil
}

func (d *RodDriver) Port() int {
	return d.port
}

// PageText opens the URL in a fresh tab, waits for the load and returns
// the visible body text.
func (d *RodDriver) PageText(ctx context.Context, url string) (string, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return "", errors.New("browser driver is closed")
	}

	page, err := d.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("page did not finish loading: %w", err)
	}

	body, err := page.Element("body")
	if err != nil {
		return "", err
	}
	text, err := body.Text()
	if err != nil {
		return "", err
	}
	if runes := []rune(text); len(runes) > pageTextLimit {
		text = string(runes[:pageTextLimit])
	}
	return text, nil
}

// Close shuts the instance down. Further calls are no-ops.
func (d *RodDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.browser.Close()
	d.launcher.Kill()
	slog.Debug("browser closed", "port", d.port)
	return err
}
