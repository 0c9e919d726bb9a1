// Package fixture generates randomized users and products for scenarios.
package fixture

import (
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// Defaults applied to generated products.
const (
	MinPrice        = 1
	MaxPrice        = 1000
	DefaultQuantity = 50
)

// User is a generated account. It is never mutated after generation.
type User struct {
	Name     string
	Email    string
	Password string
	IsAdmin  bool
}

// Product is a generated product in ServeRest's wire form.
type Product struct {
	Name        string `json:"nome"`
	Price       int    `json:"preco"`
	Description string `json:"descricao"`
	Quantity    int    `json:"quantidade"`
	Image       string `json:"imagem,omitempty"`
}

// Generator produces fixtures. It is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// New returns a Generator. A zero seed draws a random one; any other seed
// makes the fake values reproducible (unique suffixes stay random).
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// User returns a fresh user with a unique email.
func (g *Generator) User(isAdmin bool) User {
	g.mu.Lock()
	defer g.mu.Unlock()
	name := g.faker.Name()
	return User{
		Name:     name,
		Email:    strings.ToLower(g.faker.Username()) + "." + suffix(8) + "@" + g.faker.DomainName(),
		Password: g.faker.Password(true, true, true, false, false, 12),
		IsAdmin:  isAdmin,
	}
}

// ProductName returns a product name made unique with a UUID suffix, so
// repeated runs against a backend that keeps its data never collide.
func (g *Generator) ProductName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.ProductName() + " " + uuid.NewString()
}

// Product returns an API product payload with the default quantity.
func (g *Generator) Product() Product {
	name := g.ProductName()
	g.mu.Lock()
	defer g.mu.Unlock()
	return Product{
		Name:        name,
		Price:       g.faker.IntRange(MinPrice, MaxPrice),
		Description: g.faker.ProductDescription(),
		Quantity:    DefaultQuantity,
	}
}

// FormProduct returns values for the UI product form. Its name carries a
// short suffix so it stays readable in the listing table.
func (g *Generator) FormProduct() Product {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Product{
		Name:        g.faker.ProductName() + " " + suffix(8),
		Price:       g.faker.IntRange(MinPrice, MaxPrice),
		Description: g.faker.ProductDescription(),
		Quantity:    g.faker.IntRange(1, 100),
	}
}

func suffix(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
