// Package api implements the ServeRest-compatible HTTP API for the twin.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
	"github.com/wondertwin-ai/twin-serverest/pkg/twincore"
)

// Handler holds all API handler state.
type Handler struct {
	store  *store.MemoryStore
	mw     *twincore.Middleware
	tokens *TokenManager
}

// NewHandler creates a new API handler.
func NewHandler(s *store.MemoryStore, mw *twincore.Middleware, tokens *TokenManager) *Handler {
	return &Handler{store: s, mw: mw, tokens: tokens}
}

// Routes mounts the ServeRest API routes. Fault injection applies here only,
// so the admin plane stays reachable while faults are active.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.FaultInjection)

		r.Post("/login", h.Login)

		r.Get("/usuarios", h.ListUsers)
		r.Post("/usuarios", h.CreateUser)
		r.Get("/usuarios/{id}", h.GetUser)
		r.Delete("/usuarios/{id}", h.DeleteUser)

		r.Get("/produtos", h.ListProducts)
		r.Get("/produtos/{id}", h.GetProduct)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth, h.requireAdmin)
			r.Post("/produtos", h.CreateProduct)
			r.Put("/produtos/{id}", h.UpdateProduct)
			r.Delete("/produtos/{id}", h.DeleteProduct)
		})

		r.Get("/carrinhos", h.ListCarts)
		r.Get("/carrinhos/{id}", h.GetCart)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/carrinhos", h.CreateCart)
			r.Delete("/carrinhos/concluir-compra", h.CompletePurchase)
			r.Delete("/carrinhos/cancelar-compra", h.CancelPurchase)
		})
	})
}

// decode reads a JSON object body into a generic map so field validation can
// report every missing or mistyped field at once.
func decode(r *http.Request) (map[string]any, error) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

// invalidBody writes the 400 returned for bodies that are not a JSON object.
func invalidBody(w http.ResponseWriter, err error) {
	twincore.Error(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
}
