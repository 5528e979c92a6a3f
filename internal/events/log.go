package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher writes events to a zerolog logger at debug level.
type LogPublisher struct {
	Logger *zerolog.Logger
}

// Publish implements Publisher.
func (p LogPublisher) Publish(_ context.Context, event Event) error {
	if p.Logger == nil {
		return nil
	}
	p.Logger.Debug().
		Str("event_id", event.ID).
		Str("topic", event.Topic).
		Str("key", event.Key).
		RawJSON("payload", event.Payload).
		Msg("voucher event")
	return nil
}
