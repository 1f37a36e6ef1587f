package core

import "sync"

// Registry is the in-memory routing table mapping channel -> user -> live
// connection. It is the only mutable state shared between sessions; every
// operation is safe under arbitrary concurrent invocation.
type Registry struct {
	mu       sync.RWMutex
	channels map[int64]map[int64]Conn
}

// NewRegistry creates an empty routing table. One instance lives for the
// whole process and is handed to whatever accepts connections.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[int64]map[int64]Conn),
	}
}

// Register inserts or replaces the connection for the (channel, user) pair.
// A second connect for the same pair wins; the superseded connection is not
// torn down here and dies on its own receive path.
func (r *Registry) Register(channelID, userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.channels[channelID]
	if !ok {
		users = make(map[int64]Conn)
		r.channels[channelID] = users
	}
	users[userID] = conn
}

// Unregister removes the pair's entry while it still points at conn, pruning
// the channel entry when it empties. Unregistering an absent pair, or one
// already replaced by a newer connection, is a no-op; a superseded session's
// teardown can therefore never evict its replacement.
func (r *Registry) Unregister(channelID, userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.channels[channelID]
	if !ok {
		return
	}
	if current, ok := users[userID]; !ok || current != conn {
		return
	}

	delete(users, userID)
	if len(users) == 0 {
		delete(r.channels, channelID)
	}
}

// Snapshot returns a point-in-time copy of the channel's live connections.
// Callers iterate the copy without holding the registry lock, so a slow
// delivery never blocks register and unregister on other sessions.
func (r *Registry) Snapshot(channelID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users, ok := r.channels[channelID]
	if !ok {
		return nil
	}

	conns := make([]Conn, 0, len(users))
	for _, conn := range users {
		conns = append(conns, conn)
	}
	return conns
}

// ChannelCount returns the number of channels with at least one live
// connection. It is safe for concurrent use.
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
