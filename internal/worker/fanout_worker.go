package worker

import (
	"context"

	"github.com/spec-kit/service-queue/internal/email"
	"github.com/spec-kit/service-queue/internal/events"
	"github.com/spec-kit/service-queue/internal/service"
)

// StartFanout wires the fan-out service into the dispatcher and launches the
// mail delivery worker. Returns the queue so main can drain it on shutdown.
func StartFanout(ctx context.Context, dispatcher events.Dispatcher, fanout *service.FanoutService, queue *email.Queue) {
	if fanout != nil {
		fanout.Register(dispatcher)
	}
	if queue != nil {
		queue.Start(ctx)
	}
}
