package fixture

import (
	"net/mail"
	"strings"
	"sync"
	"testing"
)

func TestUser(t *testing.T) {
	g := New(0)
	u := g.User(true)
	if u.Name == "" || u.Password == "" || !u.IsAdmin {
		t.Errorf("incomplete user %+v", u)
	}
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		t.Errorf("generated email %q is not a plain address: %v", u.Email, err)
	}
	if g.User(false).Email == u.Email {
		t.Error("emails must be unique")
	}
}

func TestProductDefaults(t *testing.T) {
	g := New(42)
	for i := 0; i < 50; i++ {
		p := g.Product()
		if p.Price < MinPrice || p.Price > MaxPrice {
			t.Fatalf("price %d out of range", p.Price)
		}
		if p.Quantity != DefaultQuantity {
			t.Fatalf("expected quantity %d, got %d", DefaultQuantity, p.Quantity)
		}
		if p.Description == "" || p.Image != "" {
			t.Fatalf("unexpected product %+v", p)
		}
		// name + " " + 36-char uuid
		if idx := strings.LastIndex(p.Name, " "); idx < 1 || len(p.Name)-idx-1 != 36 {
			t.Fatalf("expected uuid suffix, got %q", p.Name)
		}
	}
}

func TestFormProduct(t *testing.T) {
	p := New(0).FormProduct()
	if p.Quantity < 1 || p.Quantity > 100 {
		t.Errorf("quantity %d out of range", p.Quantity)
	}
	if idx := strings.LastIndex(p.Name, " "); len(p.Name)-idx-1 != 8 {
		t.Errorf("expected short suffix, got %q", p.Name)
	}
}

func TestNamesUniqueUnderConcurrency(t *testing.T) {
	g := New(1)
	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := g.ProductName()
			mu.Lock()
			defer mu.Unlock()
			if seen[name] {
				t.Errorf("duplicate name %q", name)
			}
			seen[name] = true
		}()
	}
	wg.Wait()
}
