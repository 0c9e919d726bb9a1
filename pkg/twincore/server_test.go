package twincore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJSONAndError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusUnauthorized, "Token ausente")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if body["message"] != "Token ausente" {
		t.Errorf("unexpected body: %+v", body)
	}
	if _, ok := body["_id"]; ok {
		t.Error("_id must be omitted when empty")
	}

	rec = httptest.NewRecorder()
	JSON(rec, http.StatusNoContent, nil)
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %s", rec.Body.String())
	}
}

func TestMsg(t *testing.T) {
	rec := httptest.NewRecorder()
	Msg(rec, "Registro excluído com sucesso")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body Message
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if body != (Message{Message: "Registro excluído com sucesso"}) {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	FieldErrors(rec, map[string]string{"nome": "nome é obrigatório"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["nome"] != "nome é obrigatório" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestParseFlags(t *testing.T) {
	t.Setenv("PORT", "4100")
	cfg, err := ParseFlags("twin-serverest", []string{"--latency", "5ms", "--token-ttl", "1m"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if cfg.Port != 4100 {
		t.Errorf("expected port from $PORT, got %d", cfg.Port)
	}
	if cfg.Latency != 5*time.Millisecond || cfg.TokenTTL != time.Minute {
		t.Errorf("unexpected durations: %+v", cfg)
	}
	if cfg.JWTSecret == "" {
		t.Error("expected default jwt secret")
	}

	if _, err := ParseFlags("twin-serverest", []string{"--fail-rate", "2"}); err == nil {
		t.Error("expected error for fail-rate > 1")
	}
}

func TestUpdateConfig(t *testing.T) {
	twin := New(&Config{Name: "t"})

	if err := twin.UpdateConfig(map[string]any{"latency": "10ms", "fail_rate": 0.5}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if twin.Config.Latency != 10*time.Millisecond || twin.Config.FailRate != 0.5 {
		t.Errorf("updates not applied: %+v", twin.GetConfig())
	}

	// A bad field rejects the whole update.
	err := twin.UpdateConfig(map[string]any{"latency": "1s", "fail_rate": 7.0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if twin.Config.Latency != 10*time.Millisecond {
		t.Error("partial update applied despite validation error")
	}

	if err := twin.UpdateConfig(map[string]any{"port": 1}); err == nil {
		t.Error("port must not be changeable at runtime")
	}
}

func TestTwinServeHTTP(t *testing.T) {
	twin := New(&Config{Name: "t"})
	twin.Router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, Message{Message: "pong"})
	})

	rec := httptest.NewRecorder()
	twin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	entries := twin.Middleware().ReqLog.Entries()
	if len(entries) != 1 || entries[0].RequestID == "" {
		t.Errorf("expected logged request with id, got %+v", entries)
	}
}
