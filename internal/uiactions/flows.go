package uiactions

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/wondertwin-ai/twin-serverest/internal/browser"
	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
	"github.com/wondertwin-ai/twin-serverest/internal/locators"
	"github.com/wondertwin-ai/twin-serverest/internal/messages"
)

// Login authenticates through the login form once per credential pair and
// lands on /admin/home or /home. Later calls restore the captured storage
// instead of repeating the form. Only a verified login is cached.
func (u *UI) Login(ctx context.Context, email, password string, isAdmin bool) error {
	st, hit, err := u.sessions.GetOrCreate(credentials{email, password}, func() (browser.State, error) {
		return u.loginFlow(ctx, email, password)
	})
	if err != nil {
		return err
	}
	if hit {
		u.logger.Debug("reusing cached session", "email", email)
		if err := u.d.Restore(ctx, st); err != nil {
			return err
		}
	}

	landing := "/home"
	if isAdmin {
		landing = "/admin/home"
	}
	return u.d.Navigate(ctx, u.front+landing)
}

func (u *UI) loginFlow(ctx context.Context, email, password string) (browser.State, error) {
	u.logger.Info("ui login", "email", email)
	if err := u.d.Navigate(ctx, u.front+"/login"); err != nil {
		return browser.State{}, err
	}
	if err := u.d.Type(ctx, locators.LoginPage.Email, email); err != nil {
		return browser.State{}, err
	}
	if err := u.d.Type(ctx, locators.LoginPage.Password, password); err != nil {
		return browser.State{}, err
	}

	ex, err := u.d.Await(ctx, browser.Request(http.MethodPost, u.api, "/login"), func() error {
		return u.d.Click(ctx, locators.LoginPage.Submit)
	})
	if err != nil {
		return browser.State{}, err
	}
	if ex.Status != http.StatusOK {
		return browser.State{}, assertionf("login for %s returned status %d", email, ex.Status)
	}
	// The form must be settled again before the session is worth keeping.
	if err := u.d.WaitURLContains(ctx, "/login"); err != nil {
		return browser.State{}, assertionf("login for %s left the login page early: %v", email, err)
	}
	if err := u.d.WaitVisible(ctx, locators.LoginPage.Submit); err != nil {
		return browser.State{}, assertionf("login for %s: submit not visible after the call: %v", email, err)
	}

	token, err := u.d.LocalStorageItem(ctx, TokenKey)
	if err != nil {
		return browser.State{}, err
	}
	if token == "" {
		return browser.State{}, assertionf("login for %s stored no token", email)
	}
	return u.d.Capture(ctx, u.front)
}

// Token returns the token the frontend stored for the logged-in user.
func (u *UI) Token(ctx context.Context) (string, error) {
	token, err := u.d.LocalStorageItem(ctx, TokenKey)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", assertionf("no token in localStorage")
	}
	return token, nil
}

// RegisterProduct fills the product form from the admin home with random
// values and an uploaded image, submits it, and returns the product name.
func (u *UI) RegisterProduct(ctx context.Context) (string, error) {
	p := u.gen.FormProduct()
	u.logger.Info("ui register product", "nome", p.Name)

	if err := u.d.Click(ctx, locators.HomePage.RegisterProducts); err != nil {
		return "", err
	}
	fields := []struct {
		loc   locators.Locator
		value string
	}{
		{locators.ProductPage.Name, p.Name},
		{locators.ProductPage.Price, strconv.Itoa(p.Price)},
		{locators.ProductPage.Description, p.Description},
		{locators.ProductPage.Quantity, strconv.Itoa(p.Quantity)},
	}
	for _, f := range fields {
		if err := u.d.Type(ctx, f.loc, f.value); err != nil {
			return "", err
		}
	}

	if err := u.d.WaitVisible(ctx, locators.ProductPage.Image); err != nil {
		return "", err
	}
	image, err := u.fetchImage(ctx)
	if err != nil {
		return "", err
	}
	defer os.Remove(image)
	if err := u.d.SetFile(ctx, locators.ProductPage.Image, image); err != nil {
		return "", err
	}

	if err := u.d.Click(ctx, locators.ProductPage.Submit); err != nil {
		return "", err
	}
	if err := u.d.WaitURLContains(ctx, "/listarprodutos"); err != nil {
		return "", assertionf("product form did not redirect to the listing: %v", err)
	}
	return p.Name, nil
}

// AssertProductListed checks that a listing cell contains name.
func (u *UI) AssertProductListed(ctx context.Context, name string) error {
	if err := u.d.WaitVisible(ctx, locators.ProductCell(name)); err != nil {
		return assertionf("product %q not listed: %v", name, err)
	}
	return nil
}

// RegisterUserUI signs a new random user up through the form and checks the
// success banner and the redirect home.
func (u *UI) RegisterUserUI(ctx context.Context) (fixture.User, error) {
	user := u.gen.User(false)
	u.logger.Info("ui register user", "email", user.Email)

	if err := u.d.Navigate(ctx, u.front+"/login"); err != nil {
		return user, err
	}
	if err := u.d.Click(ctx, locators.LoginPage.Register); err != nil {
		return user, err
	}
	if err := u.d.WaitURLContains(ctx, "/cadastrarusuarios"); err != nil {
		return user, assertionf("register link did not open the signup page: %v", err)
	}

	fields := []struct {
		loc   locators.Locator
		value string
	}{
		{locators.RegisterPage.Name, user.Name},
		{locators.RegisterPage.Email, user.Email},
		{locators.RegisterPage.Password, user.Password},
	}
	for _, f := range fields {
		if err := u.d.Type(ctx, f.loc, f.value); err != nil {
			return user, err
		}
	}
	if err := u.d.Click(ctx, locators.RegisterPage.Submit); err != nil {
		return user, err
	}

	text, err := u.d.Text(ctx, locators.RegisterPage.AlertSuccess)
	if err != nil {
		return user, assertionf("no success banner: %v", err)
	}
	if text != messages.SuccessRegister {
		return user, assertionf("banner text %q, want %q", text, messages.SuccessRegister)
	}
	if err := u.d.WaitURLContains(ctx, "/home"); err != nil {
		return user, assertionf("signup did not redirect home: %v", err)
	}
	return user, nil
}

// RemoveProduct opens the listing and deletes the row containing name,
// waiting for the delete call to finish.
func (u *UI) RemoveProduct(ctx context.Context, name string) error {
	u.logger.Info("ui remove product", "nome", name)
	if err := u.d.Click(ctx, locators.HomePage.ListProducts); err != nil {
		return err
	}
	ex, err := u.d.Await(ctx, browser.RequestPrefix(http.MethodDelete, u.api, "/produtos/"), func() error {
		return u.d.Click(ctx, locators.DeleteButton(name))
	})
	if err != nil {
		return err
	}
	if ex.Status != http.StatusOK {
		return assertionf("deleting %q returned status %d", name, ex.Status)
	}
	return nil
}

// AssertProductRemoved reloads the admin listing, waits for its products
// call, and checks no cell contains name.
func (u *UI) AssertProductRemoved(ctx context.Context, name string) error {
	_, err := u.d.Await(ctx, browser.Request(http.MethodGet, u.api, "/produtos"), func() error {
		return u.d.Navigate(ctx, u.front+"/admin/listarprodutos")
	})
	if err != nil {
		return err
	}
	if err := u.d.WaitVisible(ctx, locators.ProductPage.Table); err != nil {
		return err
	}
	n, err := u.d.Count(ctx, locators.ProductCell(name))
	if err != nil {
		return err
	}
	if n != 0 {
		return assertionf("product %q still listed (%d cells)", name, n)
	}
	return nil
}
