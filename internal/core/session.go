package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Identity is a resolved, authenticated user as seen by the core.
type Identity struct {
	UserID      int64
	Username    string
	IsModerator bool
}

// StoredMessage is the persisted record returned by the message sink.
type StoredMessage struct {
	ID        int64
	ChannelID int64
	SenderID  int64
	Content   string
	CreatedAt time.Time
}

// IdentityGate resolves a bearer credential to a user identity.
// Failures wrap ErrUnauthenticated.
type IdentityGate interface {
	ResolveIdentity(ctx context.Context, credential string) (Identity, error)
}

// AccessPolicy decides whether an identity may attach to a channel.
// Denials wrap ErrForbidden or ErrNotFound.
type AccessPolicy interface {
	Authorize(ctx context.Context, id Identity, channelID int64) error
}

// MessageSink persists one message per accepted inbound payload and returns
// the stored record.
type MessageSink interface {
	Persist(ctx context.Context, id Identity, channelID int64, text string) (StoredMessage, error)
}

// State is a phase of the session lifecycle. Closed is the single terminal
// state; every failure path converges there.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAuthorizing
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthorizing:
		return "authorizing"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns one live connection from accept to teardown. A session is
// used for exactly one connection and is not shared between goroutines.
type Session struct {
	registry    *Registry
	broadcaster *Broadcaster
	gate        IdentityGate
	policy      AccessPolicy
	sink        MessageSink
	log         *zerolog.Logger

	state State
}

// NewSession builds a session around the shared registry and collaborators.
func NewSession(registry *Registry, broadcaster *Broadcaster, gate IdentityGate, policy AccessPolicy, sink MessageSink, logger *zerolog.Logger) *Session {
	return &Session{
		registry:    registry,
		broadcaster: broadcaster,
		gate:        gate,
		policy:      policy,
		sink:        sink,
		log:         logger,
		state:       StateConnecting,
	}
}

// State reports the session's current lifecycle phase.
func (s *Session) State() State {
	return s.state
}

// Run drives the session to completion: authenticate, authorize, register,
// then receive -> persist -> broadcast until the connection ends. Rejected
// connections are closed before they ever touch the registry; registered
// ones are guaranteed to be unregistered on every exit path.
func (s *Session) Run(ctx context.Context, conn Conn, channelID int64, credential string) {
	s.state = StateAuthenticating
	if credential == "" {
		s.close(conn, ClosePolicyViolation, ReasonMissingCredential)
		return
	}

	id, err := s.gate.ResolveIdentity(ctx, credential)
	if err != nil {
		s.log.Debug().Err(err).Int64("channel_id", channelID).Msg("credential rejected")
		s.close(conn, ClosePolicyViolation, ReasonUnauthenticated)
		return
	}

	s.state = StateAuthorizing
	if err := s.policy.Authorize(ctx, id, channelID); err != nil {
		// Missing channel and denied access read the same on the wire.
		s.log.Debug().Err(err).Int64("channel_id", channelID).Int64("user_id", id.UserID).Msg("access denied")
		s.close(conn, ClosePolicyViolation, ReasonForbidden)
		return
	}

	s.state = StateActive
	s.registry.Register(channelID, id.UserID, conn)
	defer func() {
		s.registry.Unregister(channelID, id.UserID, conn)
		s.close(conn, CloseNormal, "closing")
	}()

	s.log.Info().Int64("channel_id", channelID).Int64("user_id", id.UserID).Str("username", id.Username).Msg("session active")

	for {
		text, err := conn.Receive(ctx)
		if err != nil {
			// Remote close, transport error, and cancellation all end the
			// session the same way.
			s.log.Debug().Err(err).Int64("channel_id", channelID).Int64("user_id", id.UserID).Msg("receive ended")
			return
		}

		msg, err := s.sink.Persist(ctx, id, channelID, text)
		if err != nil {
			// The message is dropped; the session stays active.
			s.log.Error().Err(err).Int64("channel_id", channelID).Int64("user_id", id.UserID).Msg("persist message failed")
			continue
		}

		s.broadcaster.Broadcast(ctx, channelID, id.Username+": "+msg.Content)
	}
}

func (s *Session) close(conn Conn, status CloseStatus, reason string) {
	s.state = StateClosing
	if err := conn.Close(status, reason); err != nil {
		s.log.Debug().Err(err).Msg("close connection")
	}
	s.state = StateClosed
}
