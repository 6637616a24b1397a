package actor

import (
	"context"
	"time"
)

// HandlerToken represents one armed alarm handler invocation. It must be
// dropped exactly once; Drop decides, based on what
// happened while armed, whether the alarm is cleared, left at its dirty
// value, or left untouched.
type HandlerToken struct {
	c        *Coordinator
	fireTime time.Time
	isRetry  bool
	dropped  bool
}

// FireTime is the alarm time this handler was armed for.
func (h *HandlerToken) FireTime() time.Time { return h.fireTime }

// IsRetry reports whether this invocation is a retry of a previously failed
// handler run.
func (h *HandlerToken) IsRetry() bool { return h.isRetry }

// ArmAlarmHandler arms a handler invocation for fireTime. It fails closed:
// if the committed alarm no longer matches fireTime (it was changed or
// cleared since the scheduler decided to fire), it returns a nil token and
// nil error — the caller's handler run is cancelled, since the fire it was
// scheduled for no longer applies. isRetry records whether this invocation
// is a retry of a previously failed handler run, for handler code that
// wants to behave differently (e.g. skip idempotent side effects) on retry.
func (c *Coordinator) ArmAlarmHandler(ctx context.Context, fireTime time.Time, isRetry bool) (*HandlerToken, error) {
	if err := c.brokenErr(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	committed := c.committedAlarm
	if committed == nil || !committed.Equal(fireTime) {
		c.mu.Unlock()
		return nil, nil
	}
	c.handler = handlerArmed
	c.handlerFireTime = fireTime
	c.handlerDirty = false
	c.handlerDeferDel = true
	c.mu.Unlock()

	return &HandlerToken{c: c, fireTime: fireTime, isRetry: isRetry}, nil
}

// CancelDeferredAlarmDeletion tells the coordinator not to clear the alarm
// when this token is dropped, leaving the current value in place. It has no
// effect once the token has been marked dirty by a SetAlarm call while
// armed: any SetAlarm while armed sets dirty and clears deferred deletion,
// and calling CancelDeferredAlarmDeletion afterward does not re-enable it.
func (h *HandlerToken) CancelDeferredAlarmDeletion() {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if h.c.handler == handlerArmed {
		h.c.handlerDeferDel = false
	}
}

// Drop ends the armed invocation. If the handler wrote a new alarm value
// while armed (dirty), that value stands; otherwise, unless
// CancelDeferredAlarmDeletion was called, the alarm is cleared. handler
// state returns to idle only once any resulting commit has settled.
func (h *HandlerToken) Drop(ctx context.Context) error {
	if h.dropped {
		return nil
	}
	h.dropped = true

	h.c.mu.Lock()
	dirty := h.c.handlerDirty
	deferDel := h.c.handlerDeferDel
	h.c.handler = handlerDropping
	h.c.mu.Unlock()

	var triggered bool
	var opErr error
	switch {
	case dirty:
		// The SetAlarm call made while armed already armed its own
		// commit generation; nothing further to do here.
	case deferDel:
		opErr = h.c.SetAlarm(ctx, nil)
		triggered = opErr == nil
	default:
		// CancelDeferredAlarmDeletion was called and nothing else
		// changed: leave the alarm exactly as it was.
	}

	var waitErr error
	if dirty || triggered {
		waitErr = h.c.gate.Wait(ctx)
	}

	h.c.mu.Lock()
	h.c.handler = handlerIdle
	h.c.mu.Unlock()

	if opErr != nil {
		return opErr
	}
	return waitErr
}
