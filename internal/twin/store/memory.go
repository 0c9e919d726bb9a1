package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	pkgstore "github.com/wondertwin-ai/twin-serverest/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

// Errors returned by store operations. The API layer maps each one to the
// matching ServeRest message.
var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateProduct  = errors.New("product name already registered")
	ErrUserNotFound      = errors.New("user not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCartNotFound      = errors.New("cart not found")
	ErrInvalidLogin      = errors.New("invalid email or password")
	ErrOneCartOnly       = errors.New("user already has a cart")
	ErrDuplicateCartItem = errors.New("product repeated in cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductInCart     = errors.New("product is part of a cart")
	ErrUserHasCart       = errors.New("user has a cart")
)

// hashCost is deliberately low: the twin hashes on every registration and
// seeded state is throwaway.
const hashCost = bcrypt.MinCost

// MemoryStore holds all twin state in memory.
type MemoryStore struct {
	// mu serializes operations that touch more than one collection
	// (cart creation moves stock, deletions check references).
	mu sync.Mutex

	Users    *pkgstore.Store[User]
	Products *pkgstore.Store[Product]
	Carts    *pkgstore.Store[Cart]

	Clock *pkgstore.Clock
}

// New creates a new MemoryStore with empty state.
func New() *MemoryStore {
	return &MemoryStore{
		Users:    pkgstore.New[User](),
		Products: pkgstore.New[Product](),
		Carts:    pkgstore.New[Cart](),
		Clock:    pkgstore.NewClock(),
	}
}

func emailKey(u User) string { return strings.ToLower(u.Email) }

func productKey(p Product) string { return p.Name }

// CreateUser registers a user, hashing the password. Emails are unique
// case-insensitively.
func (s *MemoryStore) CreateUser(name, email, password string, admin bool) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}
	u := User{
		ID:           s.Users.NextID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Admin:        fmt.Sprintf("%t", admin),
	}
	if !s.Users.Insert(u.ID, u, emailKey) {
		return User{}, ErrDuplicateEmail
	}
	return u, nil
}

// Authenticate returns the user whose email and password match.
func (s *MemoryStore) Authenticate(email, password string) (User, error) {
	_, u, ok := s.Users.Find(func(_ string, u User) bool {
		return strings.EqualFold(u.Email, email)
	})
	if !ok {
		return User{}, ErrInvalidLogin
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidLogin
	}
	return u, nil
}

// UserByEmail finds a user by email.
func (s *MemoryStore) UserByEmail(email string) (User, bool) {
	_, u, ok := s.Users.Find(func(_ string, u User) bool {
		return strings.EqualFold(u.Email, email)
	})
	return u, ok
}

// DeleteUser removes a user unless they own a cart. It reports whether a
// record was removed.
func (s *MemoryStore) DeleteUser(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cartOf(id); ok {
		return false, ErrUserHasCart
	}
	return s.Users.Delete(id), nil
}

// CreateProduct adds a product, rejecting duplicate names. It holds mu so a
// concurrent rename cannot claim the same name.
func (s *MemoryStore) CreateProduct(p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.Products.NextID()
	if !s.Products.Insert(p.ID, p, productKey) {
		return Product{}, ErrDuplicateProduct
	}
	return p, nil
}

// UpdateProduct replaces a product's fields, keeping names unique.
func (s *MemoryStore) UpdateProduct(id string, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.Products.Find(func(oid string, o Product) bool {
		return o.Name == p.Name && oid != id
	}); ok {
		return ErrDuplicateProduct
	}
	p.ID = id
	if !s.Products.Update(id, func(cur *Product) bool {
		*cur = p
		return true
	}) {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct removes a product unless some cart references it. The
// returned cart id names the blocking cart.
func (s *MemoryStore) DeleteProduct(id string) (deleted bool, cartID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cid, _, ok := s.Carts.Find(func(_ string, c Cart) bool {
		for _, line := range c.Items {
			if line.ProductID == id {
				return true
			}
		}
		return false
	}); ok {
		return false, cid, ErrProductInCart
	}
	return s.Products.Delete(id), "", nil
}

// CreateCart validates the requested lines, reserves stock, and stores the
// cart. Either every line is reserved or nothing changes.
func (s *MemoryStore) CreateCart(userID string, items []CartRequestItem) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cartOf(userID); ok {
		return Cart{}, ErrOneCartOnly
	}

	seen := make(map[string]bool, len(items))
	lines := make([]CartLine, 0, len(items))
	cart := Cart{UserID: userID}
	for _, it := range items {
		if seen[it.ProductID] {
			return Cart{}, ErrDuplicateCartItem
		}
		seen[it.ProductID] = true

		p, ok := s.Products.Get(it.ProductID)
		if !ok {
			return Cart{}, ErrProductNotFound
		}
		if p.Quantity < it.Quantity {
			return Cart{}, ErrInsufficientStock
		}
		lines = append(lines, CartLine{ProductID: p.ID, Quantity: it.Quantity, UnitPrice: p.Price})
		cart.TotalPrice += p.Price * it.Quantity
		cart.TotalQuantity += it.Quantity
	}

	for _, line := range lines {
		s.Products.Update(line.ProductID, func(p *Product) bool {
			p.Quantity -= line.Quantity
			return true
		})
	}
	cart.Items = lines
	cart.ID = s.Carts.NextID()
	s.Carts.Set(cart.ID, cart)
	return cart, nil
}

// CancelCart deletes the user's cart and returns its stock to the catalog.
func (s *MemoryStore) CancelCart(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cartOf(userID)
	if !ok {
		return ErrCartNotFound
	}
	for _, line := range c.Items {
		s.Products.Update(line.ProductID, func(p *Product) bool {
			p.Quantity += line.Quantity
			return true
		})
	}
	s.Carts.Delete(c.ID)
	return nil
}

// CompleteCart deletes the user's cart; the reserved stock stays sold.
func (s *MemoryStore) CompleteCart(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cartOf(userID)
	if !ok {
		return ErrCartNotFound
	}
	s.Carts.Delete(c.ID)
	return nil
}

func (s *MemoryStore) cartOf(userID string) (Cart, bool) {
	_, c, ok := s.Carts.Find(func(_ string, c Cart) bool { return c.UserID == userID })
	return c, ok
}

// stateSnapshot is the JSON-serializable state for admin endpoints.
type stateSnapshot struct {
	Users    map[string]User    `json:"usuarios"`
	Products map[string]Product `json:"produtos"`
	Carts    map[string]Cart    `json:"carrinhos"`
}

// Snapshot returns the full state as a JSON-serializable value.
func (s *MemoryStore) Snapshot() any {
	return stateSnapshot{
		Users:    s.Users.Snapshot(),
		Products: s.Products.Snapshot(),
		Carts:    s.Carts.Snapshot(),
	}
}

// LoadState replaces the full state from a JSON body. Seeded users may carry
// a plain "password", which is hashed on load; record ids default to the map
// keys.
func (s *MemoryStore) LoadState(data []byte) error {
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	for id, u := range snap.Users {
		u.ID = id
		if u.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), hashCost)
			if err != nil {
				return fmt.Errorf("hashing password for %s: %w", u.Email, err)
			}
			u.PasswordHash = string(hash)
			u.Password = ""
		}
		if u.Admin == "" {
			u.Admin = "false"
		}
		snap.Users[id] = u
	}
	for id, p := range snap.Products {
		p.ID = id
		snap.Products[id] = p
	}
	for id, c := range snap.Carts {
		c.ID = id
		snap.Carts[id] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users.LoadSnapshot(snap.Users)
	s.Products.LoadSnapshot(snap.Products)
	s.Carts.LoadSnapshot(snap.Carts)
	return nil
}

// Reset clears all state.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users.Reset()
	s.Products.Reset()
	s.Carts.Reset()
	s.Clock.Reset()
}
