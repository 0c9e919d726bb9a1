package apiactions_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wondertwin-ai/twin-serverest/internal/apiactions"
	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
	"github.com/wondertwin-ai/twin-serverest/internal/messages"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/twintest"
	"github.com/wondertwin-ai/twin-serverest/pkg/twincore"
)

type env struct {
	twin   *twintest.Twin
	client *apiactions.Client
	gen    *fixture.Generator
	logs   *bytes.Buffer
}

func setup(t testing.TB, opts ...apiactions.Option) *env {
	t.Helper()
	tw := twintest.New(t)
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	gen := fixture.New(0)
	opts = append([]apiactions.Option{apiactions.WithLogger(logger), apiactions.WithGenerator(gen)}, opts...)
	return &env{twin: tw, client: apiactions.New(tw.URL(), opts...), gen: gen, logs: logs}
}

// adminToken registers a fresh admin and logs in.
func (e *env) adminToken(t testing.TB) string {
	t.Helper()
	return e.token(t, true)
}

func (e *env) token(t testing.TB, isAdmin bool) string {
	t.Helper()
	ctx := context.Background()
	u := e.gen.User(isAdmin)
	if err := e.client.RegisterUser(ctx, u, isAdmin); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	token, err := e.client.Login(ctx, u.Email, u.Password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return token
}

func TestRegisterUserIsFireAndForget(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	u := e.gen.User(false)

	if err := e.client.RegisterUser(ctx, u, false); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := e.client.RegisterUser(ctx, u, false); err != nil {
		t.Fatalf("duplicate registration must not fail: %v", err)
	}
	if strings.Contains(e.logs.String(), "register failed") {
		t.Error("400 must not be logged as a failure")
	}

	e.twin.Core.Middleware().Faults.Set("POST /usuarios", twincore.FaultConfig{StatusCode: 500})
	if err := e.client.RegisterUser(ctx, e.gen.User(false), false); err != nil {
		t.Fatalf("unexpected status must only be logged: %v", err)
	}
	if !strings.Contains(e.logs.String(), "register failed") {
		t.Errorf("expected a warning, got logs:\n%s", e.logs.String())
	}
	if strings.Contains(e.logs.String(), u.Password) {
		t.Error("password leaked into logs")
	}
}

func TestStrictRegistration(t *testing.T) {
	e := setup(t, apiactions.WithStrictRegistration())
	e.twin.Core.Middleware().Faults.Set("POST /usuarios", twincore.FaultConfig{StatusCode: 500})

	err := e.client.RegisterUser(context.Background(), e.gen.User(true), true)
	if !errors.Is(err, apiactions.ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	e := setup(t)
	token := e.adminToken(t)
	if !strings.HasPrefix(token, "Bearer ") {
		t.Errorf("expected bearer token, got %q", token)
	}

	_, err := e.client.Login(context.Background(), "ninguem@qa.com", "x")
	if !errors.Is(err, apiactions.ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), messages.ErrorInvalidCredentials) {
		t.Errorf("expected backend message in error, got %v", err)
	}
}

func TestCreateProductOverrides(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	token := e.adminToken(t)

	resp, err := e.client.CreateProduct(ctx, token, apiactions.ProductOverrides{"nome": "Fixo", "quantidade": 3})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusCreated || resp.Message != messages.SuccessRegister || resp.ID == "" {
		t.Fatalf("unexpected response %+v", resp)
	}

	got, err := e.client.GetProduct(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	var p fixture.Product
	if err := got.Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Fixo" || p.Quantity != 3 {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.Price < fixture.MinPrice || p.Price > fixture.MaxPrice || p.Description == "" {
		t.Errorf("defaults not applied: %+v", p)
	}
}

func TestCreateProductReturnsNegativeOutcomesAsData(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		token   string
		status  int
		message string
	}{
		{"no token", "", http.StatusUnauthorized, messages.ErrorUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, messages.ErrorUnauthorized},
		{"non-admin", e.token(t, false), http.StatusForbidden, messages.ErrorForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := e.client.CreateProduct(ctx, tt.token, nil)
			if err != nil {
				t.Fatalf("HTTP errors must not be faults: %v", err)
			}
			want := apiactions.Response{Status: tt.status, Message: tt.message}
			got := apiactions.Response{Status: resp.Status, Message: resp.Message}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegisterProduct(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	id, err := e.client.RegisterProduct(ctx, e.adminToken(t))
	if err != nil || id == "" {
		t.Fatalf("RegisterProduct: %q %v", id, err)
	}
	if _, err := e.client.RegisterProduct(ctx, ""); !errors.Is(err, apiactions.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus without token, got %v", err)
	}
}

func TestListProductsContract(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	if err := e.client.ListProducts(ctx); !errors.Is(err, apiactions.ErrContract) {
		t.Fatalf("empty catalog must violate quantidade > 0, got %v", err)
	}
	if _, err := e.client.RegisterProduct(ctx, e.adminToken(t)); err != nil {
		t.Fatal(err)
	}
	if err := e.client.ListProducts(ctx); err != nil {
		t.Fatalf("ListProducts: %v", err)
	}

	faults := e.twin.Core.Middleware().Faults
	faults.Set("GET /produtos", twincore.FaultConfig{StatusCode: 200, Body: `{"quantidade":1}`})
	if err := e.client.ListProducts(ctx); !errors.Is(err, apiactions.ErrContract) {
		t.Errorf("missing produtos must violate the contract, got %v", err)
	}
	faults.Set("GET /produtos", twincore.FaultConfig{StatusCode: 200, Body: `{"quantidade":1,"produtos":{}}`})
	if err := e.client.ListProducts(ctx); !errors.Is(err, apiactions.ErrContract) {
		t.Errorf("non-array produtos must violate the contract, got %v", err)
	}
}

func TestMalformedBodyIsAFault(t *testing.T) {
	e := setup(t)
	e.twin.Core.Middleware().Faults.Set("GET /produtos", twincore.FaultConfig{StatusCode: 502, Body: "<html>bad gateway</html>"})
	if err := e.client.ListProducts(context.Background()); err == nil || errors.Is(err, apiactions.ErrContract) {
		t.Errorf("expected a decode fault, got %v", err)
	}
}

func TestTransportFailureIsAFault(t *testing.T) {
	e := setup(t)
	e.twin.Server.Close()
	if err := e.client.ClearCart(context.Background(), "Bearer x"); err == nil {
		t.Error("expected transport error")
	}
}

func TestCartActions(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	token := e.adminToken(t)
	p, _ := e.client.RegisterProduct(ctx, token)
	q, _ := e.client.RegisterProduct(ctx, token)

	resp, err := e.client.AddToCart(ctx, token, []apiactions.CartItem{{ProductID: p, Quantity: 1}, {ProductID: q, Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusCreated || resp.ID == "" {
		t.Fatalf("unexpected cart response %+v", resp)
	}

	resp, _ = e.client.DeleteProduct(ctx, token, p)
	if resp.Status != http.StatusBadRequest || resp.Message != messages.ErrorProductInCart {
		t.Errorf("expected product-in-cart rejection, got %+v", resp)
	}

	if err := e.client.ClearCart(ctx, token); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	resp, _ = e.client.CompletePurchase(ctx, token)
	if resp.Status != http.StatusOK || resp.Message != messages.NoCartForUser {
		t.Errorf("expected no cart after clear, got %+v", resp)
	}

	var product fixture.Product
	got, _ := e.client.GetProduct(ctx, q)
	got.Decode(&product)
	if product.Quantity != fixture.DefaultQuantity {
		t.Errorf("expected stock restored to %d, got %d", fixture.DefaultQuantity, product.Quantity)
	}
}
