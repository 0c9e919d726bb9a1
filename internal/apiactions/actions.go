package apiactions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
)

// RegisterUser creates user. Registration is fire-and-forget: 201 and 400
// (already registered) are silent, any other status is logged. Only faults
// are returned, unless the client was built WithStrictRegistration.
func (c *Client) RegisterUser(ctx context.Context, user fixture.User, isAdmin bool) error {
	admin := "false"
	if isAdmin {
		admin = "true"
	}
	resp, err := c.do(ctx, http.MethodPost, "/usuarios", "", map[string]string{
		"nome":          user.Name,
		"email":         user.Email,
		"password":      user.Password,
		"administrador": admin,
	})
	if err != nil {
		return fmt.Errorf("registering %s: %w", user.Email, err)
	}
	if resp.Status == http.StatusCreated || resp.Status == http.StatusBadRequest {
		return nil
	}
	c.logger.Warn("register failed", "email", user.Email, "status", resp.Status, "message", resp.Message)
	if c.strict {
		return fmt.Errorf("registering %s: %w %d: %s", user.Email, ErrUnexpectedStatus, resp.Status, resp.Message)
	}
	return nil
}

// Login returns the authorization value ("Bearer ...") for the credentials.
// Anything but 200 is ErrLoginFailed.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("logging in %s: %w", email, err)
	}
	if resp.Status != http.StatusOK {
		return "", fmt.Errorf("%w for %s: status %d: %s", ErrLoginFailed, email, resp.Status, resp.Message)
	}
	var body struct {
		Authorization string `json:"authorization"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", err
	}
	if body.Authorization == "" {
		return "", fmt.Errorf("%w for %s: no authorization in response", ErrLoginFailed, email)
	}
	return body.Authorization, nil
}

// ProductOverrides replaces default product fields by wire name ("nome",
// "preco", "descricao", "quantidade"). Values are sent as given, so invalid
// types can be used for negative tests.
type ProductOverrides map[string]any

// CreateProduct merges overrides over a generated product and posts it. The
// response is returned without any assertion.
func (c *Client) CreateProduct(ctx context.Context, token string, overrides ProductOverrides) (*Response, error) {
	p := c.gen.Product()
	payload := map[string]any{
		"nome":       p.Name,
		"preco":      p.Price,
		"descricao":  p.Description,
		"quantidade": p.Quantity,
	}
	for k, v := range overrides {
		payload[k] = v
	}
	c.logger.Debug("creating product", "nome", payload["nome"])
	return c.do(ctx, http.MethodPost, "/produtos", token, payload)
}

// RegisterProduct creates a default product and returns its id. Anything
// but 201 is ErrUnexpectedStatus.
func (c *Client) RegisterProduct(ctx context.Context, token string) (string, error) {
	resp, err := c.CreateProduct(ctx, token, nil)
	if err != nil {
		return "", err
	}
	if resp.Status != http.StatusCreated || resp.ID == "" {
		return "", fmt.Errorf("registering product: %w %d: %s", ErrUnexpectedStatus, resp.Status, resp.Message)
	}
	return resp.ID, nil
}

// ListProducts checks the listing contract: status 200, a "produtos" array,
// and a positive "quantidade".
func (c *Client) ListProducts(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/produtos", "", nil)
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return fmt.Errorf("%w: listing returned status %d", ErrContract, resp.Status)
	}
	var body struct {
		Quantity *int              `json:"quantidade"`
		Products *[]map[string]any `json:"produtos"`
	}
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", ErrContract, err)
	}
	if body.Products == nil {
		return fmt.Errorf("%w: listing has no produtos array", ErrContract)
	}
	if body.Quantity == nil || *body.Quantity <= 0 {
		return fmt.Errorf("%w: listing quantidade must be greater than 0", ErrContract)
	}
	return nil
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id string) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/produtos/"+url.PathEscape(id), "", nil)
}

// DeleteProduct deletes one product.
func (c *Client) DeleteProduct(ctx context.Context, token, id string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, "/produtos/"+url.PathEscape(id), token, nil)
}

// CartItem is one requested cart line.
type CartItem struct {
	ProductID string `json:"idProduto"`
	Quantity  int    `json:"quantidade"`
}

// AddToCart creates a cart holding items for the token's user.
func (c *Client) AddToCart(ctx context.Context, token string, items []CartItem) (*Response, error) {
	if items == nil {
		items = []CartItem{}
	}
	return c.do(ctx, http.MethodPost, "/carrinhos", token, map[string]any{"produtos": items})
}

// ClearCart cancels the token's cart, returning its stock. Every HTTP status
// counts as success: having no cart is the goal state.
func (c *Client) ClearCart(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/carrinhos/cancelar-compra", token, nil)
	if err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	c.logger.Debug("cart cleared (if existed)", "status", resp.Status, "message", resp.Message)
	return nil
}

// CompletePurchase completes the token's cart.
func (c *Client) CompletePurchase(ctx context.Context, token string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, "/carrinhos/concluir-compra", token, nil)
}
