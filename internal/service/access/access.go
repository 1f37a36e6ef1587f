// Package access implements the core's collaborator interfaces over the
// auth service and the store: credential resolution, channel access policy,
// and message recording.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/chantalk-server/internal/auth"
	"github.com/vovakirdan/chantalk-server/internal/core"
	"github.com/vovakirdan/chantalk-server/internal/store"
)

// Gate resolves bearer tokens to live user identities.
type Gate struct {
	auth  *auth.Service
	users store.UserStore
}

// NewGate creates an identity gate over the auth service and user store.
func NewGate(authService *auth.Service, users store.UserStore) *Gate {
	return &Gate{auth: authService, users: users}
}

// ResolveIdentity validates the token and loads the live user row, so a
// deleted account cannot ride on an old token.
func (g *Gate) ResolveIdentity(ctx context.Context, credential string) (core.Identity, error) {
	claims, err := g.auth.ValidateToken(credential)
	if err != nil {
		return core.Identity{}, fmt.Errorf("validate token: %w", core.ErrUnauthenticated)
	}

	user, err := g.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return core.Identity{}, fmt.Errorf("resolve user: %w", core.ErrUnauthenticated)
	}

	return core.Identity{
		UserID:      user.ID,
		Username:    user.Username,
		IsModerator: user.IsModerator,
	}, nil
}

// Policy decides channel access: the channel must exist, the user must not
// be blocked, and the user must be a member unless the moderator override
// applies.
type Policy struct {
	store store.Store
}

// NewPolicy creates an access policy over the store.
func NewPolicy(st store.Store) *Policy {
	return &Policy{store: st}
}

// Authorize re-reads the user row so block status is current at connect
// time; it is intentionally not consulted per message.
func (p *Policy) Authorize(ctx context.Context, id core.Identity, channelID int64) error {
	user, err := p.store.GetUserByID(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", core.ErrForbidden)
	}
	if user.IsBlocked {
		return fmt.Errorf("user blocked: %w", core.ErrForbidden)
	}

	if _, err := p.store.GetChannelByID(ctx, channelID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("channel %d: %w", channelID, core.ErrNotFound)
		}
		return fmt.Errorf("load channel: %w", err)
	}

	if user.IsModerator {
		return nil
	}

	member, err := p.store.IsMember(ctx, user.ID, channelID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return fmt.Errorf("not a member: %w", core.ErrForbidden)
	}

	return nil
}

// Recorder persists accepted inbound messages.
type Recorder struct {
	messages store.MessageStore
}

// NewRecorder creates a message recorder over the message store.
func NewRecorder(messages store.MessageStore) *Recorder {
	return &Recorder{messages: messages}
}

// Persist stores one message and returns the stored record.
func (r *Recorder) Persist(ctx context.Context, id core.Identity, channelID int64, text string) (core.StoredMessage, error) {
	msg := &store.Message{
		ChannelID: channelID,
		UserID:    id.UserID,
		Content:   text,
	}
	if err := r.messages.SaveMessage(ctx, msg); err != nil {
		return core.StoredMessage{}, fmt.Errorf("save message: %w", err)
	}

	return core.StoredMessage{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		SenderID:  msg.UserID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}, nil
}
