// Package twintest starts an in-process ServeRest twin for tests.
package twintest

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wondertwin-ai/twin-serverest/internal/twin/api"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
	"github.com/wondertwin-ai/twin-serverest/pkg/admin"
	"github.com/wondertwin-ai/twin-serverest/pkg/twincore"
)

// Twin is a running twin and its backing state.
type Twin struct {
	Server *httptest.Server
	Store  *store.MemoryStore
	Core   *twincore.Twin
}

// URL returns the twin's base URL.
func (tw *Twin) URL() string { return tw.Server.URL }

// New starts a twin that is shut down when the test ends.
func New(t testing.TB) *Twin {
	t.Helper()
	memStore := store.New()
	core := twincore.New(&twincore.Config{Name: "twin-serverest-test"})
	tokens := api.NewTokenManager("twintest", 600*time.Second, memStore.Clock.Now)
	api.NewHandler(memStore, core.Middleware(), tokens).Routes(core.Router)
	adminHandler := admin.NewHandler(memStore, core.Middleware(), memStore.Clock)
	adminHandler.SetConfigProvider(core)
	adminHandler.Routes(core.Router)

	srv := httptest.NewServer(core)
	t.Cleanup(srv.Close)
	return &Twin{Server: srv, Store: memStore, Core: core}
}
