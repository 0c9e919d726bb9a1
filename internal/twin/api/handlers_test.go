package api_test

import (
	"testing"

	"github.com/wondertwin-ai/twin-serverest/internal/messages"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/twintest"
	"github.com/wondertwin-ai/twin-serverest/pkg/testutil"
)

type twinFixture struct {
	tc    *testutil.TwinClient
	admin *testutil.AdminClient
	store *store.MemoryStore
}

func setupTwin(t testing.TB) *twinFixture {
	t.Helper()
	tw := twintest.New(t)
	tc := testutil.NewTwinClient(t, tw.Server)
	return &twinFixture{tc: tc, admin: testutil.NewAdminClient(tc), store: tw.Store}
}

// registerAndLogin creates a user and returns the Authorization value issued
// for them.
func registerAndLogin(t testing.TB, tc *testutil.TwinClient, email string, isAdmin bool) string {
	t.Helper()
	adminFlag := "false"
	if isAdmin {
		adminFlag = "true"
	}
	tc.Post("/usuarios", map[string]any{
		"nome":          "Fulano da Silva",
		"email":         email,
		"password":      "teste",
		"administrador": adminFlag,
	}).AssertStatus(201).AssertMessage(messages.SuccessRegister)

	resp := tc.Post("/login", map[string]any{"email": email, "password": "teste"})
	resp.AssertStatus(200).AssertMessage(messages.SuccessLogin)
	token, _ := resp.JSONMap()["authorization"].(string)
	if len(token) < len("Bearer ")+10 || token[:7] != "Bearer " {
		t.Fatalf("unexpected authorization value %q", token)
	}
	return token
}

func createProduct(t testing.TB, tc *testutil.TwinClient, token, name string, qty int) string {
	t.Helper()
	resp := tc.WithToken(token).Post("/produtos", map[string]any{
		"nome":       name,
		"preco":      100,
		"descricao":  "Mouse",
		"quantidade": qty,
	})
	resp.AssertStatus(201).AssertMessage(messages.SuccessRegister)
	return resp.ID()
}

// --- Users and login ---

func TestRegisterUserDuplicateEmail(t *testing.T) {
	f := setupTwin(t)
	body := map[string]any{"nome": "A", "email": "a@qa.com", "password": "x", "administrador": "true"}
	id := f.tc.Post("/usuarios", body).AssertStatus(201).ID()
	f.tc.Post("/usuarios", body).AssertStatus(400).AssertMessage(messages.ErrorDuplicateEmail)

	got := f.tc.Get("/usuarios/" + id).AssertStatus(200).JSONMap()
	if got["email"] != "a@qa.com" || got["administrador"] != "true" {
		t.Errorf("unexpected user %+v", got)
	}
	if _, leaked := got["passwordHash"]; leaked {
		t.Error("password hash must not be exposed")
	}
}

func TestRegisterUserFieldValidation(t *testing.T) {
	f := setupTwin(t)
	resp := f.tc.Post("/usuarios", map[string]any{"nome": "", "email": "nope", "administrador": "yes"})
	resp.AssertStatus(400)
	m := resp.JSONMap()
	want := map[string]string{
		"nome":          "nome não pode ficar em branco",
		"email":         messages.FieldInvalidMail,
		"password":      "password é obrigatório",
		"administrador": messages.FieldBoolString,
	}
	for field, msg := range want {
		if m[field] != msg {
			t.Errorf("field %s: expected %q, got %v", field, msg, m[field])
		}
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTwin(t)
	registerAndLogin(t, f.tc, "a@qa.com", false)
	f.tc.Post("/login", map[string]any{"email": "a@qa.com", "password": "wrong"}).
		AssertStatus(401).AssertMessage(messages.ErrorInvalidCredentials)
}

func TestListUsersFilter(t *testing.T) {
	f := setupTwin(t)
	registerAndLogin(t, f.tc, "a@qa.com", true)
	registerAndLogin(t, f.tc, "b@qa.com", false)

	m := f.tc.Get("/usuarios?administrador=false").AssertStatus(200).JSONMap()
	if m["quantidade"] != float64(1) {
		t.Errorf("expected 1 non-admin user, got %v", m["quantidade"])
	}
}

// --- Auth ---

func TestProductRoutesRequireToken(t *testing.T) {
	f := setupTwin(t)
	body := map[string]any{"nome": "X", "preco": 1, "descricao": "d", "quantidade": 1}

	f.tc.Post("/produtos", body).AssertStatus(401).AssertMessage(messages.ErrorUnauthorized)
	f.tc.WithToken("Bearer garbage").Post("/produtos", body).AssertStatus(401).AssertMessage(messages.ErrorUnauthorized)

	token := registerAndLogin(t, f.tc, "user@qa.com", false)
	f.tc.WithToken(token).Post("/produtos", body).AssertStatus(403).AssertMessage(messages.ErrorForbidden)
}

func TestTokenExpiresWithSimulatedClock(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	createProduct(t, f.tc, token, "Antes", 1)

	f.admin.AdvanceTime("601s").AssertStatus(200)
	f.tc.WithToken(token).Post("/produtos", map[string]any{
		"nome": "Depois", "preco": 1, "descricao": "d", "quantidade": 1,
	}).AssertStatus(401).AssertMessage(messages.ErrorUnauthorized)
}

func TestTokenInvalidAfterUserDeleted(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	u, _ := f.store.UserByEmail("admin@qa.com")

	f.tc.Delete("/usuarios/" + u.ID).AssertStatus(200).AssertMessage(messages.SuccessDelete)
	f.tc.WithToken(token).Post("/carrinhos", map[string]any{"produtos": []any{}}).
		AssertStatus(401).AssertMessage(messages.ErrorUnauthorized)
	f.tc.Delete("/usuarios/" + u.ID).AssertStatus(200).AssertMessage(messages.NothingDeleted)
}

// --- Products ---

func TestCreateProductDuplicateName(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	createProduct(t, f.tc, token, "Logitech MX", 10)

	f.tc.WithToken(token).Post("/produtos", map[string]any{
		"nome": "Logitech MX", "preco": 5, "descricao": "outro", "quantidade": 1,
	}).AssertStatus(400).AssertMessage(messages.ErrorDuplicateProduct)
}

func TestCreateProductFieldValidation(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	m := f.tc.WithToken(token).Post("/produtos", map[string]any{
		"nome": "X", "preco": 0, "descricao": "d", "quantidade": 1.5,
	}).AssertStatus(400).JSONMap()
	if m["preco"] != "preco deve ser um número positivo" {
		t.Errorf("unexpected preco error %v", m["preco"])
	}
	if m["quantidade"] != "quantidade deve ser um inteiro" {
		t.Errorf("unexpected quantidade error %v", m["quantidade"])
	}
}

func TestListAndGetProducts(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	id := createProduct(t, f.tc, token, "Teclado", 7)
	createProduct(t, f.tc, token, "Mouse", 3)

	var list struct {
		Quantidade int             `json:"quantidade"`
		Produtos   []store.Product `json:"produtos"`
	}
	f.tc.Get("/produtos").AssertStatus(200).JSON(&list)
	if list.Quantidade != 2 || len(list.Produtos) != 2 {
		t.Fatalf("expected 2 products, got %+v", list)
	}
	if list.Produtos[0].Name != "Teclado" {
		t.Errorf("expected insertion order, got %s first", list.Produtos[0].Name)
	}

	f.tc.Get("/produtos?nome=Mouse").JSON(&list)
	if list.Quantidade != 1 || list.Produtos[0].Name != "Mouse" {
		t.Errorf("filter by nome failed: %+v", list)
	}

	var p store.Product
	f.tc.Get("/produtos/" + id).AssertStatus(200).JSON(&p)
	if p.Quantity != 7 || p.ID != id {
		t.Errorf("unexpected product %+v", p)
	}
	f.tc.Get("/produtos/nope").AssertStatus(400).AssertMessage(messages.ErrorProductNotFound)
}

func TestUpdateProductUpsert(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	id := createProduct(t, f.tc, token, "Teclado", 7)
	body := map[string]any{"nome": "Teclado RGB", "preco": 200, "descricao": "d", "quantidade": 2}

	f.tc.WithToken(token).Put("/produtos/"+id, body).AssertStatus(200).AssertMessage(messages.SuccessUpdate)
	body["nome"] = "Novo"
	newID := f.tc.WithToken(token).Put("/produtos/unknown", body).AssertStatus(201).ID()
	if newID == id {
		t.Error("upsert must create a new record")
	}
}

func TestDeleteProduct(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	id := createProduct(t, f.tc, token, "Teclado", 7)

	f.tc.WithToken(token).Delete("/produtos/"+id).AssertStatus(200).AssertMessage(messages.SuccessDelete)
	f.tc.WithToken(token).Delete("/produtos/"+id).AssertStatus(200).AssertMessage(messages.NothingDeleted)
}

// --- Carts ---

func TestCartLifecycle(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	a := createProduct(t, f.tc, token, "A", 5)
	b := createProduct(t, f.tc, token, "B", 5)
	auth := f.tc.WithToken(token)

	cartID := auth.Post("/carrinhos", map[string]any{
		"produtos": []map[string]any{{"idProduto": a, "quantidade": 2}, {"idProduto": b, "quantidade": 1}},
	}).AssertStatus(201).AssertMessage(messages.SuccessRegister).ID()

	var cart store.Cart
	f.tc.Get("/carrinhos/" + cartID).AssertStatus(200).JSON(&cart)
	if cart.TotalQuantity != 3 || cart.TotalPrice != 300 || len(cart.Items) != 2 {
		t.Errorf("unexpected cart %+v", cart)
	}

	auth.Post("/carrinhos", map[string]any{
		"produtos": []map[string]any{{"idProduto": a, "quantidade": 1}},
	}).AssertStatus(400).AssertMessage(messages.ErrorOneCartOnly)

	resp := auth.Delete("/produtos/" + a).AssertStatus(400).AssertMessage(messages.ErrorProductInCart)
	if resp.JSONMap()["idCarrinho"] != cartID {
		t.Errorf("expected blocking cart id %s, got %s", cartID, resp.Body)
	}

	auth.Delete("/carrinhos/cancelar-compra").AssertStatus(200).AssertMessage(messages.SuccessCancelPurchase)
	auth.Delete("/carrinhos/cancelar-compra").AssertStatus(200).AssertMessage(messages.NoCartForUser)

	var p store.Product
	f.tc.Get("/produtos/" + a).JSON(&p)
	if p.Quantity != 5 {
		t.Errorf("expected stock restored to 5, got %d", p.Quantity)
	}
}

func TestCartRejections(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	a := createProduct(t, f.tc, token, "A", 1)
	auth := f.tc.WithToken(token)

	tests := []struct {
		name  string
		lines []map[string]any
		want  string
	}{
		{"stock", []map[string]any{{"idProduto": a, "quantidade": 2}}, messages.ErrorInsufficientStock},
		{"unknown", []map[string]any{{"idProduto": "nope", "quantidade": 1}}, messages.ErrorProductNotFound},
		{"duplicate", []map[string]any{{"idProduto": a, "quantidade": 1}, {"idProduto": a, "quantidade": 1}}, messages.ErrorDuplicateCartItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth.Post("/carrinhos", map[string]any{"produtos": tt.lines}).AssertStatus(400).AssertMessage(tt.want)
		})
	}

	m := auth.Post("/carrinhos", map[string]any{"produtos": []any{}}).AssertStatus(400).JSONMap()
	if m["produtos"] != messages.FieldNonEmptyList {
		t.Errorf("unexpected empty cart error %+v", m)
	}
}

func TestCompletePurchaseKeepsStockSold(t *testing.T) {
	f := setupTwin(t)
	token := registerAndLogin(t, f.tc, "admin@qa.com", true)
	a := createProduct(t, f.tc, token, "A", 4)
	auth := f.tc.WithToken(token)

	auth.Post("/carrinhos", map[string]any{
		"produtos": []map[string]any{{"idProduto": a, "quantidade": 3}},
	}).AssertStatus(201)
	auth.Delete("/carrinhos/concluir-compra").AssertStatus(200).AssertMessage(messages.SuccessDelete)
	auth.Delete("/carrinhos/concluir-compra").AssertStatus(200).AssertMessage(messages.NoCartForUser)

	var p store.Product
	f.tc.Get("/produtos/" + a).JSON(&p)
	if p.Quantity != 1 {
		t.Errorf("expected 1 left in stock, got %d", p.Quantity)
	}
}

// --- Admin plane ---

func TestFaultInjectionSparesAdmin(t *testing.T) {
	f := setupTwin(t)
	f.admin.InjectFault("produtos", map[string]any{"status_code": 503}).AssertStatus(200)

	f.tc.Get("/produtos").AssertStatus(503)
	f.admin.Health().AssertStatus(200)

	f.admin.RemoveFault("produtos").AssertStatus(200)
	f.tc.Get("/produtos").AssertStatus(200)
}

func TestAdminResetAndSeed(t *testing.T) {
	f := setupTwin(t)
	registerAndLogin(t, f.tc, "a@qa.com", true)
	f.admin.Reset().AssertStatus(200)
	if f.store.Users.Count() != 0 {
		t.Fatal("expected users cleared")
	}

	f.admin.LoadState(map[string]any{
		"usuarios": map[string]any{
			"0uxuPY0cbmQhpEz1": map[string]any{
				"nome": "Fulano", "email": "fulano@qa.com", "password": "teste", "administrador": "true",
			},
		},
	}).AssertStatus(200)
	f.tc.Post("/login", map[string]any{"email": "fulano@qa.com", "password": "teste"}).AssertStatus(200)
}
