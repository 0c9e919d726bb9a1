package scenario

import (
	"strings"
	"testing"
)

func TestCheckBody(t *testing.T) {
	body := []byte(`{
		"message": "Cadastro realizado com sucesso",
		"_id": "BeeJh5lz3k6kSIzA",
		"quantidade": 2,
		"produtos": [{"nome": "Mouse", "preco": 470}, {"nome": "TV", "preco": 5240}],
		"vazio": null
	}`)

	tests := []struct {
		name       string
		assertions map[string]any
		wantErr    string
	}{
		{name: "plain equality", assertions: map[string]any{"$.message": "Cadastro realizado com sucesso"}},
		{name: "numeric equality", assertions: map[string]any{"$.quantidade": float64(2)}},
		{name: "number is not a string", assertions: map[string]any{"$.quantidade": "2"}, wantErr: "expected 2"},
		{name: "nested index", assertions: map[string]any{"$.produtos[1].nome": "TV"}},
		{name: "missing path", assertions: map[string]any{"$.nope": "x"}, wantErr: "no match"},
		{name: "exists", assertions: map[string]any{"$._id": map[string]any{"exists": true}, "$.nope": map[string]any{"exists": false}}},
		{name: "exists fails", assertions: map[string]any{"$._id": map[string]any{"exists": false}}, wantErr: "exists=true"},
		{name: "ne", assertions: map[string]any{"$.message": map[string]any{"ne": "x"}}},
		{name: "gt", assertions: map[string]any{"$.quantidade": map[string]any{"gt": float64(0)}}},
		{name: "gt fails", assertions: map[string]any{"$.quantidade": map[string]any{"gt": float64(2)}}, wantErr: "expected gt"},
		{name: "gte and lte", assertions: map[string]any{"$.produtos[0].preco": map[string]any{"gte": float64(470), "lte": float64(470)}}},
		{name: "gt on a string", assertions: map[string]any{"$.message": map[string]any{"gt": float64(1)}}, wantErr: "compares numbers"},
		{name: "contains", assertions: map[string]any{"$.message": map[string]any{"contains": "sucesso"}}},
		{name: "regex", assertions: map[string]any{"$._id": map[string]any{"regex": "^[A-Za-z0-9]{16}$"}}},
		{name: "bad regex", assertions: map[string]any{"$._id": map[string]any{"regex": "("}}, wantErr: "invalid regex"},
		{name: "type", assertions: map[string]any{"$.produtos": map[string]any{"type": "array"}, "$.vazio": map[string]any{"type": "null"}}},
		{name: "type fails", assertions: map[string]any{"$.quantidade": map[string]any{"type": "string"}}, wantErr: "expected type"},
		{name: "length", assertions: map[string]any{"$.produtos": map[string]any{"length": float64(2)}}},
		{name: "length fails", assertions: map[string]any{"$.produtos": map[string]any{"length": float64(3)}}, wantErr: "expected length"},
		{name: "unknown operator", assertions: map[string]any{"$.message": map[string]any{"like": "x"}}, wantErr: "unknown operator"},
		{name: "path without $", assertions: map[string]any{"message": "x"}, wantErr: "must start with $"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBody(body, tt.assertions)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("CheckBody() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("CheckBody() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCheckBodyRejectsNonJSON(t *testing.T) {
	if err := CheckBody([]byte("<html>"), map[string]any{"$.a": 1.0}); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

func TestExtract(t *testing.T) {
	body := []byte(`{"authorization": "Bearer abc", "list": [{"id": "x"}]}`)
	if v, err := Extract(body, "$.list[0].id"); err != nil || v != "x" {
		t.Errorf("Extract() = %v, %v", v, err)
	}
	if _, err := Extract(body, "$.list[5].id"); err == nil {
		t.Error("expected no match for an out of range index")
	}
	if _, err := Extract(body, "$.list[a]"); err == nil {
		t.Error("expected error for a bad index")
	}
}
