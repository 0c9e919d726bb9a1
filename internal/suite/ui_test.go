package suite

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/wondertwin-ai/twin-serverest/internal/browser"
	"github.com/wondertwin-ai/twin-serverest/internal/locators"
	"github.com/wondertwin-ai/twin-serverest/internal/uiactions"
)

const frontURL = "http://front.test"

// countingDriver accepts every step and counts visits to the login form.
type countingDriver struct {
	mu         sync.Mutex
	loginForms int
	restores   int
}

func (d *countingDriver) Navigate(_ context.Context, u string) error {
	if u == frontURL+"/login" {
		d.mu.Lock()
		d.loginForms++
		d.mu.Unlock()
	}
	return nil
}
func (d *countingDriver) WaitVisible(context.Context, locators.Locator) error { return nil }
func (d *countingDriver) Click(context.Context, locators.Locator) error { return nil }
func (d *countingDriver) Type(context.Context, locators.Locator, string) error { return nil }
func (d *countingDriver) Text(context.Context, locators.Locator) (string, error) { return "", nil }
func (d *countingDriver) Count(context.Context, locators.Locator) (int, error) { return 0, nil }
func (d *countingDriver) SetFile(context.Context, locators.Locator, string) error { return nil }
func (d *countingDriver) WaitURLContains(context.Context, string) error { return nil }
func (d *countingDriver) LocalStorageItem(context.Context, string) (string, error) { return "Bearer x", nil }
func (d *countingDriver) Await(_ context.Context, _ browser.Matcher, action func() error) (browser.Exchange, error) {
	return browser.Exchange{Status: http.StatusOK}, action()
}
func (d *countingDriver) Capture(_ context.Context, origin string) (browser.State, error) {
	return browser.State{Origin: origin}, nil
}
func (d *countingDriver) Restore(context.Context, browser.State) error {
	d.mu.Lock()
	d.restores++
	d.mu.Unlock()
	return nil
}

func TestUIScenariosShareOneLogin(t *testing.T) {
	env, tw := twinEnv(t)
	d := &countingDriver{}
	env.UI = uiactions.New(d, uiactions.Options{
		FrontURL:  frontURL,
		APIURL:    tw.URL(),
		Generator: env.Gen,
		Logger:    env.Logger,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := uiAdmin(ctx, env); err != nil {
			t.Fatalf("admin login %d: %v", i, err)
		}
	}
	if d.loginForms != 1 {
		t.Errorf("login form ran %d times, want 1", d.loginForms)
	}
	if d.restores != 1 {
		t.Errorf("cached session restored %d times, want 1", d.restores)
	}

	first, err := env.Admin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again, _ := env.Admin(ctx); again.Email != first.Email {
		t.Errorf("admin changed between calls: %s then %s", first.Email, again.Email)
	}
	if got := tw.Store.Users.Count(); got != 1 {
		t.Errorf("registered %d users, want 1", got)
	}
}
