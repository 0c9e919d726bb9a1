package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wondertwin-ai/twin-serverest/internal/messages"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
	"github.com/wondertwin-ai/twin-serverest/pkg/twincore"
)

// TokenManager issues and verifies the HS256 tokens handed out by /login.
// Expiry is measured against the store's simulated clock so tests can
// expire tokens with /admin/time/advance.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. A zero ttl falls back to ten
// minutes, the lifetime ServeRest gives its tokens.
func NewTokenManager(secret string, ttl time.Duration, now func() time.Time) *TokenManager {
	if ttl <= 0 {
		ttl = 600 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: now}
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given user.
func (m *TokenManager) Issue(u store.User) (string, error) {
	now := m.now()
	claims := tokenClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a raw token (without the Bearer prefix) and returns its
// claims.
func (m *TokenManager) Verify(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type userCtxKey struct{}

func userFrom(ctx context.Context) store.User {
	u, _ := ctx.Value(userCtxKey{}).(store.User)
	return u
}

var errNoToken = errors.New("missing bearer token")

// authenticate resolves the request's token to a live user. A valid
// signature is not enough: the user must still exist.
func (h *Handler) authenticate(r *http.Request) (store.User, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if raw == "" {
		return store.User{}, errNoToken
	}
	claims, err := h.tokens.Verify(raw)
	if err != nil {
		return store.User{}, err
	}
	u, ok := h.store.Users.Get(claims.Subject)
	if !ok || !strings.EqualFold(u.Email, claims.Email) {
		return store.User{}, store.ErrUserNotFound
	}
	return u, nil
}

// requireAuth rejects requests without a valid token for an existing user.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := h.authenticate(r)
		if err != nil {
			twincore.Error(w, http.StatusUnauthorized, messages.ErrorUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, u)))
	})
}

// requireAdmin must run after requireAuth.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !userFrom(r.Context()).IsAdmin() {
			twincore.Error(w, http.StatusForbidden, messages.ErrorForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
