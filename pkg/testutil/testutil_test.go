package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /produtos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "sem token"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "ok", "_id": "abc"})
	})

	mux.HandleFunc("PUT /produtos/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{
			"message":      "Registro alterado com sucesso",
			"id":           r.PathValue("id"),
			"content_type": r.Header.Get("Content-Type"),
			"nome":         body["nome"],
		})
	})

	mux.HandleFunc("GET /echo-headers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		out := map[string]string{}
		for k := range r.Header {
			out[k] = r.Header.Get(k)
		}
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("POST /admin/reset", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "reset"})
	})

	return httptest.NewServer(mux)
}

func TestWithTokenSendsAuthorization(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	tc := NewTwinClient(t, srv)

	tc.Post("/produtos", map[string]any{}).AssertStatus(401).AssertMessage("sem token")

	resp := tc.WithToken("Bearer abc").Post("/produtos", map[string]any{})
	resp.AssertStatus(201).AssertMessage("ok")
	if resp.ID() != "abc" {
		t.Errorf("expected id abc, got %s", resp.ID())
	}

	echoed := tc.WithToken("Bearer xyz").Get("/echo-headers").JSONMap()
	if echoed["Authorization"] != "Bearer xyz" {
		t.Errorf("expected token passed verbatim, got %v", echoed["Authorization"])
	}
	if tc.token != "" {
		t.Error("WithToken must not mutate the original client")
	}
}

func TestPutSendsJSONBody(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	tc := NewTwinClient(t, srv)

	got := tc.Put("/produtos/abc", map[string]any{"nome": "Teclado"}).
		AssertStatus(200).
		AssertMessage("Registro alterado com sucesso").
		JSONMap()
	if got["id"] != "abc" || got["nome"] != "Teclado" || got["content_type"] != "application/json" {
		t.Errorf("unexpected echo: %v", got)
	}
}

func TestAdminClientDropsToken(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	tc := NewTwinClient(t, srv).WithToken("Bearer one")
	ac := NewAdminClient(tc)

	echoed := ac.tc.Get("/echo-headers").JSONMap()
	if _, ok := echoed["Authorization"]; ok {
		t.Errorf("admin calls must not carry a token, got %v", echoed["Authorization"])
	}
	if tc.token != "Bearer one" {
		t.Error("NewAdminClient must not mutate the wrapped client")
	}
}

func TestAdminReset(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	ac := NewAdminClient(NewTwinClientURL(t, srv.URL+"/"))

	resp := ac.Reset().AssertStatus(200)
	if resp.JSONMap()["status"] != "reset" {
		t.Errorf("unexpected reset body: %s", resp.Body)
	}
}
