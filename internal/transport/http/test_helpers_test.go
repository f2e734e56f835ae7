package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbschat/gateway/internal/auth"
	"github.com/rbschat/gateway/internal/config"
	"github.com/rbschat/gateway/internal/core"
	"github.com/rbschat/gateway/internal/store"
	"github.com/rbschat/gateway/internal/store/sqlite"
)

// newTestStack builds the full gateway over an in-memory SQLite store and
// returns the running test server, the auth gate for minting tokens, and the
// store for seeding data.
func newTestStack(t *testing.T) (*httptest.Server, *auth.Gate, store.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	gate := auth.NewGate(&auth.Config{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})

	logger := zerolog.Nop()

	registry := core.NewRegistry()
	bus := core.NewBus(registry, st, &logger)
	presence := core.NewNotifier(registry, bus, &logger)
	directory := core.NewDirectory(st)
	handler := core.NewHandler(gate, directory, registry, bus, presence, st, 50, &logger)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = "test-secret"

	server := NewServer(handler, gate, st, &cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, gate, st
}

func mustToken(t *testing.T, gate *auth.Gate, username string) string {
	t.Helper()

	token, err := gate.Issue(username)
	if err != nil {
		t.Fatalf("issue token for %s: %v", username, err)
	}
	return token
}
