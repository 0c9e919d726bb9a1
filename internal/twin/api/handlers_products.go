package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wondertwin-ai/twin-serverest/internal/messages"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
	"github.com/wondertwin-ai/twin-serverest/pkg/twincore"
)

// parseProduct validates a product body for create and update.
func parseProduct(body map[string]any) (store.Product, fieldErrors) {
	fe := fieldErrors{}
	p := store.Product{
		Name:        fe.str(body, "nome"),
		Price:       fe.integer(body, "preco", 1),
		Description: fe.str(body, "descricao"),
		Quantity:    fe.integer(body, "quantidade", 0),
		Image:       fe.optionalStr(body, "imagem"),
	}
	return p, fe
}

// CreateProduct handles POST /produtos (admin only).
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		invalidBody(w, err)
		return
	}
	p, fe := parseProduct(body)
	if len(fe) > 0 {
		twincore.FieldErrors(w, fe)
		return
	}

	created, err := h.store.CreateProduct(p)
	if errors.Is(err, store.ErrDuplicateProduct) {
		twincore.Error(w, http.StatusBadRequest, messages.ErrorDuplicateProduct)
		return
	}
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	twincore.JSON(w, http.StatusCreated, twincore.Message{Message: messages.SuccessRegister, ID: created.ID})
}

// ListProducts handles GET /produtos. Query parameters filter on exact field
// values.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := h.store.Products.Filter(func(id string, p store.Product) bool {
		return matches(q.Get("_id"), id) &&
			matches(q.Get("nome"), p.Name) &&
			matches(q.Get("descricao"), p.Description) &&
			matches(q.Get("preco"), strconv.Itoa(p.Price)) &&
			matches(q.Get("quantidade"), strconv.Itoa(p.Quantity))
	})
	twincore.JSON(w, http.StatusOK, map[string]any{
		"quantidade": len(products),
		"produtos":   products,
	})
}

// GetProduct handles GET /produtos/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.Products.Get(chi.URLParam(r, "id"))
	if !ok {
		twincore.Error(w, http.StatusBadRequest, messages.ErrorProductNotFound)
		return
	}
	twincore.JSON(w, http.StatusOK, p)
}

// UpdateProduct handles PUT /produtos/{id} (admin only). An unknown id
// creates a new product instead.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		invalidBody(w, err)
		return
	}
	p, fe := parseProduct(body)
	if len(fe) > 0 {
		twincore.FieldErrors(w, fe)
		return
	}

	err = h.store.UpdateProduct(chi.URLParam(r, "id"), p)
	switch {
	case err == nil:
		twincore.Msg(w, messages.SuccessUpdate)
	case errors.Is(err, store.ErrDuplicateProduct):
		twincore.Error(w, http.StatusBadRequest, messages.ErrorDuplicateProduct)
	case errors.Is(err, store.ErrProductNotFound):
		created, err := h.store.CreateProduct(p)
		if err != nil {
			twincore.Error(w, http.StatusBadRequest, messages.ErrorDuplicateProduct)
			return
		}
		twincore.JSON(w, http.StatusCreated, twincore.Message{Message: messages.SuccessRegister, ID: created.ID})
	default:
		twincore.Error(w, http.StatusInternalServerError, err.Error())
	}
}

// DeleteProduct handles DELETE /produtos/{id} (admin only). Products that are
// part of a cart cannot be deleted.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	deleted, cartID, err := h.store.DeleteProduct(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrProductInCart) {
		twincore.JSON(w, http.StatusBadRequest, map[string]string{
			"message":    messages.ErrorProductInCart,
			"idCarrinho": cartID,
		})
		return
	}
	if !deleted {
		twincore.Msg(w, messages.NothingDeleted)
		return
	}
	twincore.Msg(w, messages.SuccessDelete)
}
