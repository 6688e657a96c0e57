package bot

import (
	"context"
	"time"
)

// ContinuationTimeout limits the work that runs after acknowledging a request.
const ContinuationTimeout = 30 * time.Second

// Response is the outcome of handling a Slack request. Ack is the body of the
// acknowledgment (nil means an empty body), which transports must deliver within
// Slack's 3-second limit. Continuation, if not nil, must run after the acknowledgment.
type Response struct {
	Ack          any
	Continuation func(ctx context.Context) error
}

// Spawn runs the response's continuation (if there is one) in a new goroutine,
// with a context that outlives the inbound request. The returned channel is
// closed when the continuation is done. Errors are logged by [Coordinator.Dispatch].
func (r Response) Spawn(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if r.Continuation == nil {
		close(done)
		return done
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ContinuationTimeout)
	go func() {
		defer close(done)
		defer cancel()
		_ = r.Continuation(ctx)
	}()

	return done
}
