// Package render loads pages in headless Chrome for sources whose results
// are built by client-side scripts.
package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Renderer returns the DOM of url after it has settled.
type Renderer interface {
	Render(ctx context.Context, url string, settle time.Duration) (string, error)
}

// Defaults for Chrome.
const (
	DefaultQuietWindow = 500 * time.Millisecond
	DefaultMaxIdleWait = 10 * time.Second
	DefaultWidth       = 1440
	DefaultHeight      = 900
)

// Chrome renders pages with a fresh headless browser per call. The browser
// process is tied to the call's context and exits when it returns.
type Chrome struct {
	// ExecPath overrides Chrome discovery.
	ExecPath string
	// Headful shows the browser window; useful when debugging selectors.
	Headful   bool
	UserAgent string
	// QuietWindow is how long the network must stay idle to count as
	// quiescent.
	QuietWindow time.Duration
	// MaxIdleWait caps the wait for quiescence; pages with long-polling
	// connections are captured once it expires.
	MaxIdleWait time.Duration
}

func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !c.Headful),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(DefaultWidth, DefaultHeight),
	)
	if c.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.UserAgent))
	}
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	return opts
}

// Render navigates to url, waits for network quiescence plus settle, and
// returns the outer HTML of the document.
func (c *Chrome) Render(ctx context.Context, url string, settle time.Duration) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug().Str("url", url).Msgf(format, args...)
	}))
	defer cancelTab()

	idle := newIdleTracker(time.Now)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			idle.start()
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			idle.finish()
		}
	})

	quiet := c.QuietWindow
	if quiet <= 0 {
		quiet = DefaultQuietWindow
	}
	maxWait := c.MaxIdleWait
	if maxWait <= 0 {
		maxWait = DefaultMaxIdleWait
	}

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return idle.wait(ctx, quiet, maxWait)
		}),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// idleTracker counts in-flight requests and remembers the last network
// activity.
type idleTracker struct {
	mu       sync.Mutex
	inflight int
	last     time.Time
	now      func() time.Time
}

func newIdleTracker(now func() time.Time) *idleTracker {
	return &idleTracker{now: now, last: now()}
}

func (t *idleTracker) start() {
	t.mu.Lock()
	t.inflight++
	t.last = t.now()
	t.mu.Unlock()
}

func (t *idleTracker) finish() {
	t.mu.Lock()
	if t.inflight > 0 {
		t.inflight--
	}
	t.last = t.now()
	t.mu.Unlock()
}

// quiet reports whether nothing is in flight and nothing happened for window.
func (t *idleTracker) quiet(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight == 0 && t.now().Sub(t.last) >= window
}

func (t *idleTracker) wait(ctx context.Context, window, maxWait time.Duration) error {
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if t.quiet(window) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			log.Debug().Dur("max_idle_wait", maxWait).Msg("network never went quiet; capturing page anyway")
			return nil
		case <-tick.C:
		}
	}
}
