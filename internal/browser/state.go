package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// State is the authenticated storage of one origin: its cookies and
// localStorage entries.
type State struct {
	Origin       string
	Cookies      []*network.Cookie
	LocalStorage map[string]string
}

// Capture reads the current page's cookies and localStorage.
func (b *Browser) Capture(ctx context.Context, origin string) (State, error) {
	st := State{Origin: origin}
	err := b.run(ctx, "capture storage",
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := network.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			st.Cookies = cookies
			return nil
		}),
		chromedp.Evaluate(`Object.assign({}, window.localStorage)`, &st.LocalStorage),
	)
	return st, err
}

// Restore loads origin and replays the captured cookies and localStorage into
// it. Callers navigate to their landing page afterwards.
func (b *Browser) Restore(ctx context.Context, st State) error {
	if err := b.Navigate(ctx, st.Origin); err != nil {
		return err
	}

	params := make([]*network.CookieParam, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}

	actions := []chromedp.Action{}
	if len(params) > 0 {
		actions = append(actions, network.SetCookies(params))
	}
	if script := localStorageScript(st.LocalStorage); script != "" {
		actions = append(actions, chromedp.Evaluate(script, nil))
	}
	if len(actions) == 0 {
		return nil
	}
	return b.run(ctx, "restore storage", actions...)
}

// LocalStorageItem reads one localStorage key from the current page.
func (b *Browser) LocalStorageItem(ctx context.Context, key string) (string, error) {
	quoted, err := json.Marshal(key)
	if err != nil {
		return "", err
	}
	var value string
	err = b.run(ctx, "read localStorage "+key,
		chromedp.Evaluate(fmt.Sprintf(`window.localStorage.getItem(%s) || ""`, quoted), &value))
	return value, err
}

// localStorageScript builds a script that writes every entry. Keys and values
// are JSON-quoted so any content is a valid JS string literal.
func localStorageScript(items map[string]string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for k, v := range items {
		qk, _ := json.Marshal(k)
		qv, _ := json.Marshal(v)
		fmt.Fprintf(&sb, "window.localStorage.setItem(%s, %s);", qk, qv)
	}
	return sb.String()
}
