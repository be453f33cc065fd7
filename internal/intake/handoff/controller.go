package handoff

import (
	"context"
	"time"

	"intake-server/internal/intake/record"
	"intake-server/internal/observability"
)

// DefaultCloseDelay is how long the farewell is given to play out before
// the caller connection is torn down.
const DefaultCloseDelay = 2000 * time.Millisecond

// Sink receives the formatted intake summary. Implemented by the notify
// webhook client.
type Sink interface {
	Send(ctx context.Context, content string) error
}

// Call is the surface the controller drives when an intake completes
// mid-call. Implemented by the session bridge.
type Call interface {
	SayFarewell() error
	ScheduleClose(after time.Duration)
}

// Controller decides when the accumulated record is handed off to the
// sink. One instance per call session; every method must be invoked from
// the session's dispatch goroutine, so no locking is needed. The done flag
// is monotonic: the handoff fires at most once per session no matter how
// many events trigger the check.
type Controller struct {
	sink       Sink
	logger     *observability.Logger
	closeDelay time.Duration
	done       bool
}

// New creates a controller for one call session
func New(sink Sink, logger *observability.Logger) *Controller {
	return &Controller{
		sink:       sink,
		logger:     logger,
		closeDelay: DefaultCloseDelay,
	}
}

// Done reports whether the handoff already happened.
func (c *Controller) Done() bool {
	return c.done
}

// CheckAndHandoff hands the record off if it is complete: the summary goes
// to the sink (fire-and-forget), the caller gets a scripted farewell, and
// the connection is scheduled to close once the farewell has played.
// No-op when already done or the record is still missing fields.
func (c *Controller) CheckAndHandoff(ctx context.Context, rec *record.Record, call Call) {
	if c.done || !rec.Complete() {
		return
	}
	c.done = true

	c.logger.Info(ctx, "Intake record complete, handing off")

	// Detached from the call lifecycle so teardown cannot cancel delivery.
	go func(summary string) {
		sendCtx := context.WithoutCancel(ctx)
		if err := c.sink.Send(sendCtx, summary); err != nil {
			c.logger.Error(sendCtx, "Failed to deliver intake notification", err)
		}
	}(rec.Summary())

	if err := call.SayFarewell(); err != nil {
		c.logger.Error(ctx, "Failed to send farewell", err)
	}
	call.ScheduleClose(c.closeDelay)
}

// CallerGone delivers a best-effort incomplete-call notice when the caller
// disconnects before the record is complete. Nothing is sent when no field
// was ever set.
func (c *Controller) CallerGone(ctx context.Context, rec *record.Record) {
	if c.done || rec.Empty() {
		return
	}
	c.done = true

	c.logger.Info(ctx, "Caller disconnected with partial record, handing off")
	if err := c.sink.Send(ctx, "Incomplete call (caller disconnected):\n"+rec.Summary()); err != nil {
		c.logger.Error(ctx, "Failed to deliver partial intake notification", err)
	}
}
