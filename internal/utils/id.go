package utils

import "github.com/google/uuid"

// NewID returns a unique identifier, used to correlate log lines that
// belong to one connection.
func NewID() string {
	return uuid.NewString()
}
