package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsModerator  bool
	IsBlocked    bool
	CreatedAt    time.Time
}

// Channel represents a group conversation. Membership is a many-to-many
// relation with users; moderators have access to every channel.
type Channel struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID        int64
	ChannelID int64
	UserID    int64
	Content   string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// SetBlocked updates the user's blocked flag.
	SetBlocked(ctx context.Context, userID int64, blocked bool) error

	// SetModerator updates the user's moderator flag.
	SetModerator(ctx context.Context, userID int64, moderator bool) error
}

// ChannelStore handles channel persistence and membership.
type ChannelStore interface {
	// CreateChannel creates a new channel.
	CreateChannel(ctx context.Context, name string) (*Channel, error)

	// GetChannelByID retrieves a channel by ID.
	GetChannelByID(ctx context.Context, id int64) (*Channel, error)

	// DeleteChannel removes a channel together with its memberships and messages.
	DeleteChannel(ctx context.Context, id int64) error

	// AddMember adds a user to a channel. Adding an existing member is a no-op.
	AddMember(ctx context.Context, userID, channelID int64) error

	// RemoveMember removes a user from a channel.
	RemoveMember(ctx context.Context, userID, channelID int64) error

	// IsMember checks if the user is a member of the channel.
	IsMember(ctx context.Context, userID, channelID int64) (bool, error)

	// ListMembers lists all member user IDs of a channel.
	ListMembers(ctx context.Context, channelID int64) ([]int64, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID and CreatedAt.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages from a channel with pagination.
	// If beforeID is provided, returns messages older than that ID.
	// Limit determines max number of messages to return.
	ListMessages(ctx context.Context, channelID int64, limit int, beforeID *int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChannelStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
