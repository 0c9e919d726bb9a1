// Package store defines the ServeRest twin's state types and the in-memory
// store that enforces the backend's invariants.
package store

// User is a registered account. Admin is kept as the "true"/"false" string
// ServeRest uses on the wire.
type User struct {
	ID           string `json:"_id"`
	Name         string `json:"nome"`
	Email        string `json:"email"`
	Password     string `json:"password,omitempty"` // seed input only; never stored
	PasswordHash string `json:"passwordHash,omitempty"`
	Admin        string `json:"administrador"`
}

// IsAdmin reports whether the user may call admin-only routes.
func (u User) IsAdmin() bool {
	return u.Admin == "true"
}

// Product is a catalog entry. Names are unique across the catalog.
type Product struct {
	ID          string `json:"_id"`
	Name        string `json:"nome"`
	Price       int    `json:"preco"`
	Description string `json:"descricao"`
	Quantity    int    `json:"quantidade"`
	Image       string `json:"imagem,omitempty"`
}

// CartLine is one product entry in a cart, priced at creation time.
type CartLine struct {
	ProductID string `json:"idProduto"`
	Quantity  int    `json:"quantidade"`
	UnitPrice int    `json:"precoUnitario"`
}

// Cart belongs to exactly one user; a user has at most one cart.
type Cart struct {
	ID            string     `json:"_id"`
	Items         []CartLine `json:"produtos"`
	TotalPrice    int        `json:"precoTotal"`
	TotalQuantity int        `json:"quantidadeTotal"`
	UserID        string     `json:"idUsuario"`
}

// CartRequestItem is a requested line before validation.
type CartRequestItem struct {
	ProductID string `json:"idProduto"`
	Quantity  int    `json:"quantidade"`
}
