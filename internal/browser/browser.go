// Package browser wraps a chromedp session with the waits, network awaits,
// storage capture, and failure screenshots the UI actions need.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/wondertwin-ai/twin-serverest/internal/locators"
)

// DefaultStepTimeout bounds every wait when Options leaves it unset.
const DefaultStepTimeout = 10 * time.Second

// ErrTimeout wraps waits that ran out of step budget.
var ErrTimeout = errors.New("step timed out")

// Options configures a Browser.
type Options struct {
	Headless     bool
	StepTimeout  time.Duration
	ArtifactsDir string // screenshots land here; empty disables them
	Logger       *slog.Logger
}

// Browser is one browser context. Its steps run strictly one after another.
type Browser struct {
	opts        Options
	logger      *slog.Logger
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	net         *tracker
}

// New launches a browser and enables network tracking.
func New(opts Options) (*Browser, error) {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	b := &Browser{
		opts:        opts,
		logger:      logger,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		net:         newTracker(),
	}
	chromedp.ListenTarget(ctx, b.net.handle)

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		b.Close()
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	logger.Info("browser started", "headless", opts.Headless, "step_timeout", opts.StepTimeout)
	return b, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
}

// StepTimeout returns the per-step wait budget.
func (b *Browser) StepTimeout() time.Duration { return b.opts.StepTimeout }

// step derives a chromedp context bounded by the step timeout that is also
// cancelled with the caller's ctx.
func (b *Browser) step(ctx context.Context) (context.Context, context.CancelFunc) {
	stepCtx, cancel := context.WithTimeout(b.ctx, b.opts.StepTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return stepCtx, func() {
		stop()
		cancel()
	}
}

// run executes actions as one step, taking a screenshot if it fails.
func (b *Browser) run(ctx context.Context, what string, actions ...chromedp.Action) error {
	stepCtx, cancel := b.step(ctx)
	defer cancel()
	err := chromedp.Run(stepCtx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s: %v", ErrTimeout, b.opts.StepTimeout, err)
	}
	b.Screenshot(what)
	return fmt.Errorf("%s: %w", what, err)
}

func by(l locators.Locator) chromedp.QueryOption {
	if l.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Navigate loads rawURL and waits for the body.
func (b *Browser) Navigate(ctx context.Context, rawURL string) error {
	b.logger.Debug("navigate", "url", rawURL)
	return b.run(ctx, "navigate to "+rawURL,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitVisible waits until l is visible.
func (b *Browser) WaitVisible(ctx context.Context, l locators.Locator) error {
	return b.run(ctx, "wait visible "+l.String(), chromedp.WaitVisible(l.Query, by(l)))
}

// Click waits until l is visible, then clicks it.
func (b *Browser) Click(ctx context.Context, l locators.Locator) error {
	return b.run(ctx, "click "+l.String(),
		chromedp.WaitVisible(l.Query, by(l)),
		chromedp.Click(l.Query, by(l)),
	)
}

// Type waits until l is visible, clears it, and types text.
func (b *Browser) Type(ctx context.Context, l locators.Locator, text string) error {
	return b.run(ctx, "type into "+l.String(),
		chromedp.WaitVisible(l.Query, by(l)),
		chromedp.Clear(l.Query, by(l)),
		chromedp.SendKeys(l.Query, text, by(l)),
	)
}

// Text returns the visible text of l.
func (b *Browser) Text(ctx context.Context, l locators.Locator) (string, error) {
	var text string
	err := b.run(ctx, "read text of "+l.String(),
		chromedp.WaitVisible(l.Query, by(l)),
		chromedp.Text(l.Query, &text, by(l)),
	)
	return strings.TrimSpace(text), err
}

// Count returns how many nodes match l right now, without waiting.
func (b *Browser) Count(ctx context.Context, l locators.Locator) (int, error) {
	var nodes []*cdp.Node
	err := b.run(ctx, "count "+l.String(), chromedp.Nodes(l.Query, &nodes, by(l), chromedp.AtLeast(0)))
	return len(nodes), err
}

// SetFile attaches a local file to the file input l.
func (b *Browser) SetFile(ctx context.Context, l locators.Locator, path string) error {
	return b.run(ctx, "upload into "+l.String(),
		chromedp.WaitVisible(l.Query, by(l)),
		chromedp.SetUploadFiles(l.Query, []string{path}, by(l)),
	)
}

// URL returns the current page URL.
func (b *Browser) URL(ctx context.Context) (string, error) {
	var loc string
	err := b.run(ctx, "read location", chromedp.Location(&loc))
	return loc, err
}

// WaitURLContains polls the location until it contains fragment.
func (b *Browser) WaitURLContains(ctx context.Context, fragment string) error {
	deadline := time.Now().Add(b.opts.StepTimeout)
	var last string
	for {
		loc, err := b.URL(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(loc, fragment) {
			return nil
		}
		last = loc
		if time.Now().After(deadline) {
			b.Screenshot("url " + fragment)
			return fmt.Errorf("waiting for url containing %q (at %s): %w", fragment, last, ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Await runs action and waits until the first request matching m has
// completed. It returns the observed exchange.
func (b *Browser) Await(ctx context.Context, m Matcher, action func() error) (Exchange, error) {
	w := b.net.add(m)
	defer b.net.remove(w)

	if err := action(); err != nil {
		return Exchange{}, err
	}

	timer := time.NewTimer(b.opts.StepTimeout)
	defer timer.Stop()
	select {
	case err := <-w.done:
		b.net.mu.Lock()
		ex := w.exchange
		b.net.mu.Unlock()
		if err != nil {
			return ex, err
		}
		b.logger.Debug("awaited request", "method", ex.Method, "url", ex.URL, "status", ex.Status)
		return ex, nil
	case <-timer.C:
		b.Screenshot("await request")
		return Exchange{}, fmt.Errorf("waiting for network call: %w", ErrTimeout)
	case <-ctx.Done():
		return Exchange{}, ctx.Err()
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Screenshot saves a PNG of the viewport into the artifacts dir and returns
// its path. Failures are logged, never returned.
func (b *Browser) Screenshot(name string) string {
	if b.opts.ArtifactsDir == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		b.logger.Warn("screenshot failed", "name", name, "error", err)
		return ""
	}
	if err := os.MkdirAll(b.opts.ArtifactsDir, 0o755); err != nil {
		b.logger.Warn("screenshot failed", "name", name, "error", err)
		return ""
	}
	file := fmt.Sprintf("%s-%s.png", time.Now().Format("20060102-150405.000"), strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-"))
	path := filepath.Join(b.opts.ArtifactsDir, file)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		b.logger.Warn("screenshot failed", "name", name, "error", err)
		return ""
	}
	b.logger.Info("screenshot saved", "path", path)
	return path
}
