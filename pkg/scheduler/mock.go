package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Call records a single ScheduleRun invocation for test assertions.
type Call struct {
	At *time.Time
}

func (c Call) String() string {
	if c.At == nil {
		return "scheduleRun(none)"
	}
	return fmt.Sprintf("scheduleRun(%s)", c.At.Format(time.RFC3339Nano))
}

type pendingCall struct {
	call   Call
	result chan error
}

// Mock is an in-memory Scheduler double whose calls block until resolved
// by the test via Fulfill/Reject: every call is appended to a log, and the
// test drives completion order explicitly instead of the mock deciding for
// itself.
type Mock struct {
	mu      sync.Mutex
	calls   []Call
	pending []*pendingCall
}

// NewMock returns a Scheduler double with no outstanding calls.
func NewMock() *Mock {
	return &Mock{}
}

// ScheduleRun records the call and blocks until the test resolves it via
// Fulfill or Reject (FIFO: the oldest unresolved call resolves first).
func (m *Mock) ScheduleRun(ctx context.Context, at *time.Time) error {
	call := Call{At: at}
	pc := &pendingCall{call: call, result: make(chan error, 1)}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.pending = append(m.pending, pc)
	m.mu.Unlock()

	select {
	case err := <-pc.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PendingCount returns the number of ScheduleRun calls currently blocked
// awaiting resolution.
func (m *Mock) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Fulfill resolves the oldest outstanding call successfully.
func (m *Mock) Fulfill() {
	m.resolve(nil)
}

// Reject resolves the oldest outstanding call with err.
func (m *Mock) Reject(err error) {
	m.resolve(err)
}

func (m *Mock) resolve(err error) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		panic("scheduler.Mock: resolve called with no pending call")
	}
	pc := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()
	pc.result <- err
}

// Calls returns every call made so far, in order, and clears the log —
// assert-then-reset, the usual shape for a call-log test double.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.calls
	m.calls = nil
	return calls
}
