package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wondertwin-ai/twin-serverest/internal/messages"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
	"github.com/wondertwin-ai/twin-serverest/pkg/twincore"
)

var cartErrors = map[error]string{
	store.ErrOneCartOnly:       messages.ErrorOneCartOnly,
	store.ErrDuplicateCartItem: messages.ErrorDuplicateCartItem,
	store.ErrProductNotFound:   messages.ErrorProductNotFound,
	store.ErrInsufficientStock: messages.ErrorInsufficientStock,
}

// parseCartItems validates the "produtos" array of a cart body.
func parseCartItems(body map[string]any) ([]store.CartRequestItem, fieldErrors) {
	fe := fieldErrors{}
	raw, ok := body["produtos"].([]any)
	if !ok || len(raw) == 0 {
		fe.add("produtos", messages.FieldNonEmptyList)
		return nil, fe
	}
	items := make([]store.CartRequestItem, 0, len(raw))
	for _, entry := range raw {
		line, ok := entry.(map[string]any)
		if !ok {
			fe.add("produtos", messages.FieldNonEmptyList)
			return nil, fe
		}
		items = append(items, store.CartRequestItem{
			ProductID: fe.str(line, "idProduto"),
			Quantity:  fe.integer(line, "quantidade", 1),
		})
	}
	return items, fe
}

// CreateCart handles POST /carrinhos.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		invalidBody(w, err)
		return
	}
	items, fe := parseCartItems(body)
	if len(fe) > 0 {
		twincore.FieldErrors(w, fe)
		return
	}

	cart, err := h.store.CreateCart(userFrom(r.Context()).ID, items)
	if err != nil {
		for target, msg := range cartErrors {
			if errors.Is(err, target) {
				twincore.Error(w, http.StatusBadRequest, msg)
				return
			}
		}
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	twincore.JSON(w, http.StatusCreated, twincore.Message{Message: messages.SuccessRegister, ID: cart.ID})
}

// ListCarts handles GET /carrinhos.
func (h *Handler) ListCarts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	carts := h.store.Carts.Filter(func(id string, c store.Cart) bool {
		return matches(q.Get("_id"), id) && matches(q.Get("idUsuario"), c.UserID)
	})
	twincore.JSON(w, http.StatusOK, map[string]any{
		"quantidade": len(carts),
		"carrinhos":  carts,
	})
}

// GetCart handles GET /carrinhos/{id}.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.store.Carts.Get(chi.URLParam(r, "id"))
	if !ok {
		twincore.Error(w, http.StatusBadRequest, messages.ErrorCartNotFound)
		return
	}
	twincore.JSON(w, http.StatusOK, c)
}

// CompletePurchase handles DELETE /carrinhos/concluir-compra. Having no
// cart is still a 200.
func (h *Handler) CompletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.store.CompleteCart(userFrom(r.Context()).ID); err != nil {
		twincore.Msg(w, messages.NoCartForUser)
		return
	}
	twincore.Msg(w, messages.SuccessDelete)
}

// CancelPurchase handles DELETE /carrinhos/cancelar-compra, returning the
// cart's stock to the catalog.
func (h *Handler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.store.CancelCart(userFrom(r.Context()).ID); err != nil {
		twincore.Msg(w, messages.NoCartForUser)
		return
	}
	twincore.Msg(w, messages.SuccessCancelPurchase)
}
