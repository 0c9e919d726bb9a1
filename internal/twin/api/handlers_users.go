package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wondertwin-ai/twin-serverest/internal/messages"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
	"github.com/wondertwin-ai/twin-serverest/pkg/twincore"
)

// userView is the public shape of a user; the password hash never leaves
// the store.
type userView struct {
	Name  string `json:"nome"`
	Email string `json:"email"`
	Admin string `json:"administrador"`
	ID    string `json:"_id"`
}

func viewUser(u store.User) userView {
	return userView{Name: u.Name, Email: u.Email, Admin: u.Admin, ID: u.ID}
}

// CreateUser handles POST /usuarios.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		invalidBody(w, err)
		return
	}

	fe := fieldErrors{}
	name := fe.str(body, "nome")
	email := fe.email(body, "email")
	password := fe.str(body, "password")
	admin := fe.boolString(body, "administrador")
	if len(fe) > 0 {
		twincore.FieldErrors(w, fe)
		return
	}

	u, err := h.store.CreateUser(name, email, password, admin)
	if errors.Is(err, store.ErrDuplicateEmail) {
		twincore.Error(w, http.StatusBadRequest, messages.ErrorDuplicateEmail)
		return
	}
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	twincore.JSON(w, http.StatusCreated, twincore.Message{Message: messages.SuccessRegister, ID: u.ID})
}

// ListUsers handles GET /usuarios. Query parameters filter on exact field
// values.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users := h.store.Users.Filter(func(id string, u store.User) bool {
		return matches(q.Get("_id"), id) &&
			matches(q.Get("nome"), u.Name) &&
			matches(q.Get("email"), u.Email) &&
			matches(q.Get("administrador"), u.Admin)
	})
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewUser(u))
	}
	twincore.JSON(w, http.StatusOK, map[string]any{
		"quantidade": len(views),
		"usuarios":   views,
	})
}

// GetUser handles GET /usuarios/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.store.Users.Get(chi.URLParam(r, "id"))
	if !ok {
		twincore.Error(w, http.StatusBadRequest, messages.ErrorUserNotFound)
		return
	}
	twincore.JSON(w, http.StatusOK, viewUser(u))
}

// DeleteUser handles DELETE /usuarios/{id}. Deleting an unknown id is not an
// error.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.DeleteUser(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrUserHasCart) {
		twincore.Error(w, http.StatusBadRequest, messages.ErrorUserHasCart)
		return
	}
	if !deleted {
		twincore.Msg(w, messages.NothingDeleted)
		return
	}
	twincore.Msg(w, messages.SuccessDelete)
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := decode(r)
	if err != nil {
		invalidBody(w, err)
		return
	}

	fe := fieldErrors{}
	email := fe.email(body, "email")
	password := fe.str(body, "password")
	if len(fe) > 0 {
		twincore.FieldErrors(w, fe)
		return
	}

	u, err := h.store.Authenticate(email, password)
	if err != nil {
		twincore.Error(w, http.StatusUnauthorized, messages.ErrorInvalidCredentials)
		return
	}
	token, err := h.tokens.Issue(u)
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]string{
		"message":       messages.SuccessLogin,
		"authorization": "Bearer " + token,
	})
}

// matches reports whether an optional query filter accepts value.
func matches(filter, value string) bool {
	return filter == "" || filter == value
}
