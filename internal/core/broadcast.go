package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Broadcaster fans a rendered message out to every live connection on a
// channel.
type Broadcaster struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewBroadcaster builds a broadcaster over the shared registry.
func NewBroadcaster(registry *Registry, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: logger}
}

// Broadcast delivers text to each connection in the channel's current
// snapshot. Deliveries are independent: a failed send is logged and skipped,
// and the failing connection is left for its own session to tear down on its
// next receive. Partial failure is not surfaced to the caller.
func (b *Broadcaster) Broadcast(ctx context.Context, channelID int64, text string) {
	for _, conn := range b.registry.Snapshot(channelID) {
		if err := conn.Send(ctx, text); err != nil {
			b.log.Debug().Err(err).Int64("channel_id", channelID).Msg("broadcast send failed")
		}
	}
}
