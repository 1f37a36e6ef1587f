package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/vovakirdan/chantalk-server/internal/store"
)

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp, raw
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, http.MethodPost, env.server.URL+"/api/register", "", RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d: %s", resp.StatusCode, http.StatusCreated, body)
	}
	var authResp AuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	if authResp.Token == "" {
		t.Error("expected a token from register")
	}

	resp, body = doJSON(t, http.MethodPost, env.server.URL+"/api/login", "", LoginRequest{
		Username: "alice",
		Password: "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d: %s", resp.StatusCode, http.StatusOK, body)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/register", "", RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "password123",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/login", "", LoginRequest{
		Username: "alice",
		Password: "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestLoginBlockedUser(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.registerUser(t, "alice")
	if err := env.store.SetBlocked(context.Background(), alice.ID, true); err != nil {
		t.Fatalf("failed to block: %v", err)
	}

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/login", "", LoginRequest{
		Username: "alice",
		Password: "password123",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(t)

	token, alice := env.registerUser(t, "alice")
	channel := env.createChannelWithMembers(t, "general", alice.ID)

	ctx := context.Background()
	for _, content := range []string{"first", "second", "third"} {
		msg := &store.Message{ChannelID: channel.ID, UserID: alice.ID, Content: content}
		if err := env.store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("failed to save message: %v", err)
		}
	}

	resp, body := doJSON(t, http.MethodGet, env.server.URL+"/api/messages/"+strconv.FormatInt(channel.ID, 10), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, http.StatusOK, body)
	}

	var messages []MessageItem
	if err := json.Unmarshal(body, &messages); err != nil {
		t.Fatalf("failed to decode messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	if messages[0].Content != "first" || messages[2].Content != "third" {
		t.Errorf("messages out of order: %q .. %q", messages[0].Content, messages[2].Content)
	}
}

func TestListMessagesRequiresMembership(t *testing.T) {
	env := newTestEnv(t)

	_, alice := env.registerUser(t, "alice")
	carolToken, _ := env.registerUser(t, "carol")
	channel := env.createChannelWithMembers(t, "general", alice.ID)

	resp, _ := doJSON(t, http.MethodGet, env.server.URL+"/api/messages/"+strconv.FormatInt(channel.ID, 10), carolToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestListMessagesUnknownChannel(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerUser(t, "alice")

	resp, _ := doJSON(t, http.MethodGet, env.server.URL+"/api/messages/424242", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestListMessagesRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doJSON(t, http.MethodGet, env.server.URL+"/api/messages/1", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
