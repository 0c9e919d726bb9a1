// Package uiactions drives the ServeRest frontend through multi-step browser
// flows and exposes only the end state scenarios assert on.
package uiactions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/wondertwin-ai/twin-serverest/internal/browser"
	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
	"github.com/wondertwin-ai/twin-serverest/internal/locators"
	"github.com/wondertwin-ai/twin-serverest/internal/session"
)

// TokenKey is the localStorage entry the frontend keeps the token in.
const TokenKey = "serverest/userToken"

// DefaultImageURL serves a random image for product uploads.
const DefaultImageURL = "https://picsum.photos/200/300"

// ErrAssertion marks a page that did not reach the expected state.
var ErrAssertion = errors.New("ui assertion failed")

// Driver is the browser surface the flows need. *browser.Browser implements
// it.
type Driver interface {
	Navigate(ctx context.Context, rawURL string) error
	WaitVisible(ctx context.Context, l locators.Locator) error
	Click(ctx context.Context, l locators.Locator) error
	Type(ctx context.Context, l locators.Locator, text string) error
	Text(ctx context.Context, l locators.Locator) (string, error)
	Count(ctx context.Context, l locators.Locator) (int, error)
	SetFile(ctx context.Context, l locators.Locator, path string) error
	WaitURLContains(ctx context.Context, fragment string) error
	Await(ctx context.Context, m browser.Matcher, action func() error) (browser.Exchange, error)
	Capture(ctx context.Context, origin string) (browser.State, error)
	Restore(ctx context.Context, st browser.State) error
	LocalStorageItem(ctx context.Context, key string) (string, error)
}

// Options configures a UI.
type Options struct {
	FrontURL   string
	APIURL     string
	ImageURL   string
	HTTPClient *http.Client
	Generator  *fixture.Generator
	Logger     *slog.Logger
}

type credentials struct {
	email, password string
}

// UI runs flows against one browser context. Logins are cached per
// credential pair for the UI's lifetime.
type UI struct {
	d        Driver
	front    string
	api      string
	imageURL string
	http     *http.Client
	gen      *fixture.Generator
	logger   *slog.Logger
	sessions *session.Cache[credentials, browser.State]
}

// New creates a UI over d.
func New(d Driver, opts Options) *UI {
	u := &UI{
		d:        d,
		front:    strings.TrimRight(opts.FrontURL, "/"),
		api:      strings.TrimRight(opts.APIURL, "/"),
		imageURL: opts.ImageURL,
		http:     opts.HTTPClient,
		gen:      opts.Generator,
		logger:   opts.Logger,
		sessions: session.NewCache[credentials, browser.State](),
	}
	if u.imageURL == "" {
		u.imageURL = DefaultImageURL
	}
	if u.http == nil {
		u.http = &http.Client{Timeout: 30 * time.Second}
	}
	if u.gen == nil {
		u.gen = fixture.New(0)
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	return u
}

func assertionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAssertion, fmt.Sprintf(format, args...))
}

// fetchImage downloads the upload image into a temp file and returns its
// path. The caller removes it.
func (u *UI) fetchImage(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building image request: %w", err)
	}
	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching image: status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "serverest-image-*.jpg")
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing image file: %w", err)
	}
	return f.Name(), nil
}
