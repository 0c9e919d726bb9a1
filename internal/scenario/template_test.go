package scenario

import (
	"strings"
	"testing"

	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
)

func TestExpand(t *testing.T) {
	t.Setenv("SCENARIO_TOKEN", "Bearer env")
	e := &Expander{
		APIURL:   "http://localhost:3000",
		FrontURL: "http://localhost:3001",
		Vars:     map[string]string{"id": "abc"},
	}

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "{{config.api_url}}/produtos/{{id}}", want: "http://localhost:3000/produtos/abc"},
		{in: "{{ config.front_url }}/login", want: "http://localhost:3001/login"},
		{in: "{{env.SCENARIO_TOKEN}}", want: "Bearer env"},
		{in: "no templates", want: "no templates"},
		{in: "{{config.port}}", wantErr: true},
		{in: "{{missing}}", wantErr: true},
		{in: "{{id", wantErr: true},
		{in: "{{fake.email}}", wantErr: true}, // no generator
	}
	for _, tt := range tests {
		got, err := e.Expand(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Expand(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandFake(t *testing.T) {
	e := &Expander{Gen: fixture.New(1)}
	for _, kind := range []string{"name", "email", "password", "product", "description", "price"} {
		v, err := e.Expand("{{fake." + kind + "}}")
		if err != nil || v == "" {
			t.Errorf("fake.%s = %q, %v", kind, v, err)
		}
	}
	a, _ := e.Expand("{{fake.product}}")
	b, _ := e.Expand("{{fake.product}}")
	if a == b {
		t.Errorf("fake products should differ, got %q twice", a)
	}
	if _, err := e.Expand("{{fake.planet}}"); err == nil || !strings.Contains(err.Error(), "planet") {
		t.Errorf("expected unknown fake error, got %v", err)
	}
}

func TestExpandValueKeepsTypes(t *testing.T) {
	e := &Expander{Vars: map[string]string{"p": "xyz"}}
	v, err := e.expandValue(map[string]any{
		"produtos": []any{map[string]any{"idProduto": "{{p}}", "quantidade": float64(2)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	item := v.(map[string]any)["produtos"].([]any)[0].(map[string]any)
	if item["idProduto"] != "xyz" || item["quantidade"] != float64(2) {
		t.Errorf("unexpected expansion %+v", item)
	}

	if _, err := e.expandValue([]any{"{{nope}}"}); err == nil || !strings.Contains(err.Error(), "[0]") {
		t.Errorf("expected indexed error, got %v", err)
	}
}
