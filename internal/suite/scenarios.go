package suite

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/wondertwin-ai/twin-serverest/internal/apiactions"
	"github.com/wondertwin-ai/twin-serverest/internal/messages"
)

// Default returns every API scenario followed by every UI scenario.
func Default() []Scenario {
	return append(APIScenarios(), UIScenarios()...)
}

// APIScenarios are the scenarios that only use the HTTP API.
func APIScenarios() []Scenario {
	return []Scenario{
		{Name: "create-product", Kind: KindAPI, Run: createProduct},
		{Name: "duplicate-product", Kind: KindAPI, Run: duplicateProduct},
		{Name: "create-product-unauthorized", Kind: KindAPI, Run: createProductUnauthorized},
		{Name: "create-product-forbidden", Kind: KindAPI, Run: createProductForbidden},
		{Name: "list-products", Kind: KindAPI, Run: listProducts},
		{Name: "add-products-to-cart", Kind: KindAPI, Run: addProductsToCart},
		{Name: "clear-cart-idempotent", Kind: KindAPI, Run: clearCartIdempotent},
		{Name: "complete-purchase", Kind: KindAPI, Run: completePurchase},
		{Name: "delete-product-in-cart", Kind: KindAPI, Run: deleteProductInCart},
	}
}

// UIScenarios are the scenarios that drive the frontend.
func UIScenarios() []Scenario {
	return []Scenario{
		{Name: "ui-register-user", Kind: KindUI, Run: uiRegisterUser},
		{Name: "ui-register-product", Kind: KindUI, Run: uiRegisterProduct},
		{Name: "ui-remove-product", Kind: KindUI, Run: uiRemoveProduct},
	}
}

// expect checks status and, when non-empty, the exact message.
func expect(resp *apiactions.Response, status int, message string) error {
	if resp.Status != status {
		return fmt.Errorf("%w: status %d, want %d (message %q)", ErrExpectation, resp.Status, status, resp.Message)
	}
	if message != "" && resp.Message != message {
		return fmt.Errorf("%w: message %q, want %q", ErrExpectation, resp.Message, message)
	}
	return nil
}

// expectContains checks status and that the message contains fragment.
func expectContains(resp *apiactions.Response, status int, fragment string) error {
	if resp.Status != status {
		return fmt.Errorf("%w: status %d, want %d (message %q)", ErrExpectation, resp.Status, status, resp.Message)
	}
	if !strings.Contains(resp.Message, fragment) {
		return fmt.Errorf("%w: message %q does not contain %q", ErrExpectation, resp.Message, fragment)
	}
	return nil
}

// login registers a fresh user and returns its token.
func login(ctx context.Context, env *Env, isAdmin bool) (string, error) {
	u := env.Gen.User(isAdmin)
	if err := env.API.RegisterUser(ctx, u, isAdmin); err != nil {
		return "", err
	}
	return env.API.Login(ctx, u.Email, u.Password)
}

func createProduct(ctx context.Context, env *Env) error {
	token, err := login(ctx, env, true)
	if err != nil {
		return err
	}
	resp, err := env.API.CreateProduct(ctx, token, nil)
	if err != nil {
		return err
	}
	if err := expect(resp, http.StatusCreated, messages.SuccessRegister); err != nil {
		return err
	}
	if resp.ID == "" {
		return fmt.Errorf("%w: created product has no _id", ErrExpectation)
	}
	return nil
}

func duplicateProduct(ctx context.Context, env *Env) error {
	token, err := login(ctx, env, true)
	if err != nil {
		return err
	}
	overrides := apiactions.ProductOverrides{"nome": env.Gen.ProductName()}
	first, err := env.API.CreateProduct(ctx, token, overrides)
	if err != nil {
		return err
	}
	if err := expect(first, http.StatusCreated, messages.SuccessRegister); err != nil {
		return err
	}
	second, err := env.API.CreateProduct(ctx, token, overrides)
	if err != nil {
		return err
	}
	return expect(second, http.StatusBadRequest, messages.ErrorDuplicateProduct)
}

func createProductUnauthorized(ctx context.Context, env *Env) error {
	for _, token := range []string{"", "Bearer invalid.token.value"} {
		resp, err := env.API.CreateProduct(ctx, token, nil)
		if err != nil {
			return err
		}
		if err := expectContains(resp, http.StatusUnauthorized, messages.ErrorUnauthorized); err != nil {
			return fmt.Errorf("token %q: %w", token, err)
		}
	}
	return nil
}

func createProductForbidden(ctx context.Context, env *Env) error {
	token, err := login(ctx, env, false)
	if err != nil {
		return err
	}
	resp, err := env.API.CreateProduct(ctx, token, nil)
	if err != nil {
		return err
	}
	return expect(resp, http.StatusForbidden, messages.ErrorForbidden)
}

func listProducts(ctx context.Context, env *Env) error {
	token, err := login(ctx, env, true)
	if err != nil {
		return err
	}
	if _, err := env.API.RegisterProduct(ctx, token); err != nil {
		return err
	}
	return env.API.ListProducts(ctx)
}

// cartOfTwo registers two products as an admin and puts one of each in the
// admin's emptied cart.
func cartOfTwo(ctx context.Context, env *Env) (token string, ids []string, resp *apiactions.Response, err error) {
	token, err = login(ctx, env, true)
	if err != nil {
		return "", nil, nil, err
	}
	for range 2 {
		id, err := env.API.RegisterProduct(ctx, token)
		if err != nil {
			return "", nil, nil, err
		}
		ids = append(ids, id)
	}
	if err := env.API.ClearCart(ctx, token); err != nil {
		return "", nil, nil, err
	}
	items := []apiactions.CartItem{{ProductID: ids[0], Quantity: 1}, {ProductID: ids[1], Quantity: 1}}
	resp, err = env.API.AddToCart(ctx, token, items)
	return token, ids, resp, err
}

func addProductsToCart(ctx context.Context, env *Env) error {
	_, _, resp, err := cartOfTwo(ctx, env)
	if err != nil {
		return err
	}
	if err := expect(resp, http.StatusCreated, messages.SuccessRegister); err != nil {
		return err
	}
	if resp.ID == "" {
		return fmt.Errorf("%w: created cart has no _id", ErrExpectation)
	}
	return nil
}

func clearCartIdempotent(ctx context.Context, env *Env) error {
	token, err := login(ctx, env, false)
	if err != nil {
		return err
	}
	for range 3 {
		if err := env.API.ClearCart(ctx, token); err != nil {
			return err
		}
	}
	return nil
}

func completePurchase(ctx context.Context, env *Env) error {
	token, _, resp, err := cartOfTwo(ctx, env)
	if err != nil {
		return err
	}
	if err := expect(resp, http.StatusCreated, ""); err != nil {
		return err
	}
	done, err := env.API.CompletePurchase(ctx, token)
	if err != nil {
		return err
	}
	if err := expect(done, http.StatusOK, messages.SuccessDelete); err != nil {
		return err
	}
	again, err := env.API.CompletePurchase(ctx, token)
	if err != nil {
		return err
	}
	return expect(again, http.StatusOK, messages.NoCartForUser)
}

func deleteProductInCart(ctx context.Context, env *Env) error {
	token, ids, resp, err := cartOfTwo(ctx, env)
	if err != nil {
		return err
	}
	if err := expect(resp, http.StatusCreated, ""); err != nil {
		return err
	}
	rejected, err := env.API.DeleteProduct(ctx, token, ids[0])
	if err != nil {
		return err
	}
	if err := expect(rejected, http.StatusBadRequest, messages.ErrorProductInCart); err != nil {
		return err
	}
	if err := env.API.ClearCart(ctx, token); err != nil {
		return err
	}
	deleted, err := env.API.DeleteProduct(ctx, token, ids[0])
	if err != nil {
		return err
	}
	return expect(deleted, http.StatusOK, messages.SuccessDelete)
}

func uiRegisterUser(ctx context.Context, env *Env) error {
	_, err := env.UI.RegisterUserUI(ctx)
	return err
}

// uiAdmin logs the run's shared admin in through the UI and returns its
// token. Only the first call drives the login form.
func uiAdmin(ctx context.Context, env *Env) (string, error) {
	u, err := env.Admin(ctx)
	if err != nil {
		return "", err
	}
	if err := env.UI.Login(ctx, u.Email, u.Password, true); err != nil {
		return "", err
	}
	return env.UI.Token(ctx)
}

func uiRegisterProduct(ctx context.Context, env *Env) error {
	if _, err := uiAdmin(ctx, env); err != nil {
		return err
	}
	name, err := env.UI.RegisterProduct(ctx)
	if err != nil {
		return err
	}
	return env.UI.AssertProductListed(ctx, name)
}

func uiRemoveProduct(ctx context.Context, env *Env) error {
	token, err := uiAdmin(ctx, env)
	if err != nil {
		return err
	}
	name := env.Gen.ProductName()
	resp, err := env.API.CreateProduct(ctx, token, apiactions.ProductOverrides{"nome": name})
	if err != nil {
		return err
	}
	if err := expect(resp, http.StatusCreated, ""); err != nil {
		return err
	}
	if err := env.UI.RemoveProduct(ctx, name); err != nil {
		return err
	}
	return env.UI.AssertProductRemoved(ctx, name)
}
