package core

import "errors"

// Close reasons reported to rejected connections.
const (
	ReasonMissingCredential = "missing credential"
	ReasonUnauthenticated   = "unauthenticated"
	ReasonForbidden         = "forbidden"
)

var (
	// ErrUnauthenticated covers missing, invalid, and expired credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden covers "not a member and not moderator" and "user is blocked".
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the channel does not exist. Sessions surface it
	// exactly like ErrForbidden so probing cannot distinguish the two.
	ErrNotFound = errors.New("not found")
)
