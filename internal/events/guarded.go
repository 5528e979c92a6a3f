package events

import (
	"context"
	"time"

	"github.com/noah-isme/backend-voucher/internal/resilience"
)

// GuardedPublisher retries a flaky publisher and stops calling it while its
// breaker is open, so a dead broker cannot stall voucher requests.
type GuardedPublisher struct {
	Next     Publisher
	Breaker  *resilience.Breaker
	Attempts int
	Backoff  time.Duration
}

// Publish implements Publisher.
func (g GuardedPublisher) Publish(ctx context.Context, event Event) error {
	call := func(ctx context.Context) error { return g.Next.Publish(ctx, event) }
	if g.Breaker != nil {
		guarded := call
		call = func(ctx context.Context) error { return g.Breaker.Do(ctx, guarded) }
	}
	return resilience.Retry(ctx, g.Attempts, g.Backoff, call)
}
