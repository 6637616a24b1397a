// Package gate implements the output gate: a FIFO barrier that serializes
// the observable effects of in-flight commits and latches a single
// terminal "broken" error that poisons every subsequent and outstanding
// operation.
//
// The gate has no notion of what it is serializing — callers wrap their
// own commit logic in LockWhile. It has no knowledge of SQLite or alarms;
// it only orders promises.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// BrokenError is returned by every gate operation once the gate has
// latched a failure. The original triggering error is preserved verbatim
// and reachable via errors.Unwrap/errors.Is.
type BrokenError struct {
	Cause error
}

func (e *BrokenError) Error() string {
	return fmt.Sprintf("output gate broken: %v", e.Cause)
}

func (e *BrokenError) Unwrap() error { return e.Cause }

// Gate is a FIFO barrier with a latched broken state. The zero value is
// not usable; construct with New.
type Gate struct {
	mu sync.Mutex

	// tail is the promise representing "everything enqueued so far has
	// settled". Each LockWhile/Wait chains off of it.
	tail chan struct{}

	broken    error
	brokenCh  chan struct{}
	closeOnce sync.Once
}

// New returns an open gate.
func New() *Gate {
	tail := make(chan struct{})
	close(tail) // nothing queued yet; tail is immediately "reached"
	return &Gate{
		tail:     tail,
		brokenCh: make(chan struct{}),
	}
}

// LockWhile acquires a serial slot in the gate's FIFO, waits until every
// earlier slot has settled, then runs fn and publishes its completion. If
// fn fails, the gate latches broken and LockWhile returns the
// *BrokenError, which wraps fn's error when it was the first failure.
//
// If the gate is already broken, fn never runs — LockWhile fails
// immediately with the latched error.
func (g *Gate) LockWhile(ctx context.Context, fn func(context.Context) error) error {
	if err := g.checkBroken(); err != nil {
		return err
	}
	return g.Enqueue().Run(ctx, fn)
}

// Slot is a reserved position in the gate's FIFO, returned by Enqueue. It
// lets a caller fix its publish order immediately while deferring the
// actual work (Run) to whenever it's ready — needed when the work itself
// must start running right away on a background goroutine, without
// waiting for its turn to be *published*.
type Slot struct {
	g    *Gate
	prev chan struct{}
	next chan struct{}
}

// Enqueue reserves the next FIFO slot. The reservation happens
// synchronously so concurrent callers are ordered the instant they call
// Enqueue, even if Run is invoked later or from another goroutine.
func (g *Gate) Enqueue() *Slot {
	g.mu.Lock()
	prev := g.tail
	next := make(chan struct{})
	g.tail = next
	g.mu.Unlock()
	return &Slot{g: g, prev: prev, next: next}
}

// Run waits for the slot's predecessor to settle, then runs fn and
// publishes the slot's completion. A non-nil error from fn latches the
// gate via Break.
func (s *Slot) Run(ctx context.Context, fn func(context.Context) error) error {
	g := s.g
	select {
	case <-s.prev:
	case <-g.brokenCh:
		close(s.next)
		return g.checkBroken()
	case <-ctx.Done():
		close(s.next)
		return ctx.Err()
	}

	err := fn(ctx)
	if err != nil {
		g.Break(err)
	}
	close(s.next)

	if brokenErr := g.checkBroken(); brokenErr != nil {
		return brokenErr
	}
	return err
}

// Wait resolves when every operation enqueued so far (via LockWhile) has
// settled, or fails immediately if the gate is broken.
func (g *Gate) Wait(ctx context.Context) error {
	if err := g.checkBroken(); err != nil {
		return err
	}
	g.mu.Lock()
	tail := g.tail
	g.mu.Unlock()

	select {
	case <-tail:
		return g.checkBroken()
	case <-g.brokenCh:
		return g.checkBroken()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnBroken returns a channel that receives the latched error once the gate
// breaks and is then closed. BrokenErr() returns the same error and is
// safe to call any number of times.
func (g *Gate) OnBroken() <-chan error {
	ch := make(chan error, 1)
	go func() {
		<-g.brokenCh
		ch <- g.BrokenErr()
		close(ch)
	}()
	return ch
}

// BrokenErr returns the latched error, or nil if the gate is still open.
func (g *Gate) BrokenErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.broken
}

// Break poisons the gate with err. The first call latches; subsequent
// calls (even with a different error) are no-ops — brokenness is latched
// at the first failure only.
func (g *Gate) Break(err error) {
	if err == nil {
		return
	}
	g.mu.Lock()
	if g.broken != nil {
		g.mu.Unlock()
		return
	}
	var be *BrokenError
	if errors.As(err, &be) {
		g.broken = be
	} else {
		g.broken = &BrokenError{Cause: err}
	}
	g.mu.Unlock()
	g.closeOnce.Do(func() { close(g.brokenCh) })
}

func (g *Gate) checkBroken() error {
	return g.BrokenErr()
}
