package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const settleTimeout = 5 * time.Second

// ErrSessionAcquisition means no browser could be launched or attached to
var ErrSessionAcquisition = errors.New("browser session unavailable")

// Options configures how the browser is acquired
type Options struct {
	Bin             string // browser executable; looked up when empty
	Headless        bool
	UserDataDir     string // Chrome/Chromium profile directory
	DebuggerAddress string // host:port of a running browser, used by Connect
	Logger          *zap.Logger
}

// Browser wraps the Rod browser and the page being automated
type Browser struct {
	browser  *rod.Browser
	page     *rod.Page
	attached bool
	log      *zap.Logger
}

// Launch starts a new visible browser. The browser is deliberately not tied
// to this process's lifetime so it stays open for inspection after exit.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	log := logger(opts)

	bin := opts.Bin
	if bin == "" {
		path, found := launcher.LookPath()
		if !found {
			return nil, fmt.Errorf("%w: browser executable not found", ErrSessionAcquisition)
		}
		bin = path
	}

	// No launcher context: cancelling ctx must not take the browser down.
	l := launcher.New().
		Bin(bin).
		Headless(opts.Headless).
		Leakless(false).
		Set("no-first-run").
		Set("no-default-browser-check")
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}

	log.Debug("Launching browser", zap.String("bin", bin), zap.Bool("headless", opts.Headless))
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %v", ErrSessionAcquisition, err)
	}

	b := rod.New().Context(ctx).ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrSessionAcquisition, u, err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("%w: open page: %v", ErrSessionAcquisition, err)
	}

	return &Browser{browser: b, page: page, log: log}, nil
}

// Connect attaches to a browser already running with remote debugging on
// opts.DebuggerAddress and takes over its first tab.
func Connect(ctx context.Context, opts Options) (*Browser, error) {
	log := logger(opts)

	log.Debug("Resolving debugger endpoint", zap.String("address", opts.DebuggerAddress))
	u, err := launcher.ResolveURL(opts.DebuggerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: no remote debugger at %s (start Chrome with --remote-debugging-port=9222): %v",
			ErrSessionAcquisition, opts.DebuggerAddress, err)
	}

	b := rod.New().Context(ctx).ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrSessionAcquisition, u, err)
	}

	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("%w: list pages: %v", ErrSessionAcquisition, err)
	}

	var page *rod.Page
	if len(pages) == 0 {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
		if err != nil {
			return nil, fmt.Errorf("%w: open page: %v", ErrSessionAcquisition, err)
		}
	} else {
		page = pages.First()
		if _, err := page.Activate(); err != nil {
			log.Warn("Failed to activate first page", zap.Error(err))
		}
	}

	return &Browser{browser: b, page: page, attached: true, log: log}, nil
}

// Attached reports whether the browser was already running
func (b *Browser) Attached() bool {
	return b.attached
}

// Product returns the browser name and version, empty if unknown
func (b *Browser) Product() string {
	v, err := b.browser.Version()
	if err != nil {
		return ""
	}
	return v.Product
}

// Navigate loads url in the automated page and waits for the load event
func (b *Browser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p := b.page.Context(ctx).Timeout(timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}

	// The sign-in page keeps connections open, so settle for a bounded
	// idle period instead of waiting for the network to go quiet.
	b.page.Context(ctx).Timeout(settleTimeout).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	return nil
}

// Page returns the query view of the automated tab
func (b *Browser) Page() *Page {
	return &Page{page: b.page, log: b.log}
}

func logger(opts Options) *zap.Logger {
	if opts.Logger == nil {
		return zap.NewNop().Named("browser")
	}
	return opts.Logger.Named("browser")
}
