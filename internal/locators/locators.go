// Package locators maps the ServeRest frontend's UI elements to selectors so
// flows never hard-code markup.
package locators

import (
	"fmt"
	"strings"
)

// Locator addresses one element. Query is a CSS selector unless XPath is set.
type Locator struct {
	Query string
	XPath bool
}

// CSS returns a CSS locator.
func CSS(query string) Locator { return Locator{Query: query} }

// TestID returns a CSS locator for a data-testid attribute.
func TestID(id string) Locator { return CSS(fmt.Sprintf(`[data-testid="%s"]`, id)) }

func (l Locator) String() string {
	if l.XPath {
		return "xpath:" + l.Query
	}
	return l.Query
}

// LoginPage is /login.
var LoginPage = struct {
	Register, Email, Password, Submit Locator
}{
	Register: TestID("cadastrar"),
	Email:    TestID("email"),
	Password: TestID("senha"),
	Submit:   TestID("entrar"),
}

// RegisterPage is /cadastrarusuarios.
var RegisterPage = struct {
	Name, Email, Password, Submit, AlertSuccess Locator
}{
	Name:         TestID("nome"),
	Email:        TestID("email"),
	Password:     TestID("password"),
	Submit:       TestID("cadastrar"),
	AlertSuccess: CSS(".alert-link"),
}

// HomePage covers /home and /admin/home.
var HomePage = struct {
	Logout, RegisterProducts, ListProducts Locator
}{
	Logout:           TestID("logout"),
	RegisterProducts: TestID("cadastrarProdutos"),
	ListProducts:     TestID("listarProdutos"),
}

// ProductPage covers the product form and the product listing.
var ProductPage = struct {
	Name, Price, Description, Quantity, Submit, Image, Table Locator
}{
	Name:        TestID("nome"),
	Price:       TestID("preco"),
	Description: TestID("descricao"),
	Quantity:    TestID("quantity"),
	Submit:      TestID("cadastarProdutos"), // sic: the frontend's own spelling
	Image:       TestID("imagem"),
	Table:       CSS("table"),
}

// ProductCell matches a listing cell whose text contains name.
func ProductCell(name string) Locator {
	return Locator{
		Query: fmt.Sprintf("//td[contains(., %s)]", Literal(name)),
		XPath: true,
	}
}

// DeleteButton matches the delete button in the listing row whose text
// contains name.
func DeleteButton(name string) Locator {
	return Locator{
		Query: fmt.Sprintf("//tr[contains(., %s)]//*[contains(concat(' ', normalize-space(@class), ' '), ' btn-danger ')]", Literal(name)),
		XPath: true,
	}
}

// Literal quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are built with concat().
func Literal(s string) string {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
