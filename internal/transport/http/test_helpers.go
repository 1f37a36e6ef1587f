package http

import (
	"context"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/chantalk-server/internal/auth"
	"github.com/vovakirdan/chantalk-server/internal/config"
	"github.com/vovakirdan/chantalk-server/internal/core"
	"github.com/vovakirdan/chantalk-server/internal/log"
	"github.com/vovakirdan/chantalk-server/internal/store"
	"github.com/vovakirdan/chantalk-server/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

// testEnv wires a full server over an in-memory store.
type testEnv struct {
	store    store.Store
	auth     *auth.Service
	registry *core.Registry
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(t, st)

	registry := core.NewRegistry()
	logger := log.Nop()
	broadcaster := core.NewBroadcaster(registry, logger)

	srv := NewServer(registry, broadcaster, authService, st, config.Default(), logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{store: st, auth: authService, registry: registry, server: ts}
}

// registerUser registers a user directly against the auth service and returns
// the user's token and stored row.
func (e *testEnv) registerUser(t *testing.T, username string) (string, *store.User) {
	t.Helper()

	ctx := context.Background()
	token, err := e.auth.Register(ctx, username, username+"@example.com", "password123")
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	user, err := e.store.GetUserByUsername(ctx, username)
	if err != nil {
		t.Fatalf("failed to load %s: %v", username, err)
	}
	return token, user
}

// registerModerator registers a user and promotes it to moderator.
func (e *testEnv) registerModerator(t *testing.T, username string) (string, *store.User) {
	t.Helper()

	_, user := e.registerUser(t, username)
	if err := e.store.SetModerator(context.Background(), user.ID, true); err != nil {
		t.Fatalf("failed to promote %s: %v", username, err)
	}

	// Re-login so the token carries the moderator claim.
	token, err := e.auth.Login(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("failed to login %s: %v", username, err)
	}
	user, err = e.store.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("failed to reload %s: %v", username, err)
	}
	return token, user
}

// createChannelWithMembers seeds a channel and adds the given users to it.
func (e *testEnv) createChannelWithMembers(t *testing.T, name string, userIDs ...int64) *store.Channel {
	t.Helper()

	ctx := context.Background()
	channel, err := e.store.CreateChannel(ctx, name)
	if err != nil {
		t.Fatalf("failed to create channel %s: %v", name, err)
	}
	for _, userID := range userIDs {
		if err := e.store.AddMember(ctx, userID, channel.ID); err != nil {
			t.Fatalf("failed to add member %d: %v", userID, err)
		}
	}
	return channel
}

// wsURL converts the test server's base URL into a websocket URL for the
// given channel and token.
func (e *testEnv) wsURL(channelID int64, token string) string {
	base := strings.Replace(e.server.URL, "http://", "ws://", 1)
	u := base + "/ws/" + strconv.FormatInt(channelID, 10)
	if token != "" {
		u += "?token=" + token
	}
	return u
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
