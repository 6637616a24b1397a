package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/daviddao/actorkv/pkg/db"
	"github.com/daviddao/actorkv/pkg/gate"
	"github.com/daviddao/actorkv/pkg/metrics"
	"github.com/daviddao/actorkv/pkg/scheduler"
)

const rootSavepoint = "_cf_savepoint_0"

// ContractViolation is returned when a caller uses the coordinator in a way
// that is never legal (e.g. committing a transaction twice). It is never
// returned for ordinary runtime failures — those come back as the
// underlying db/scheduler error or a *gate.BrokenError.
type ContractViolation struct {
	Reason string
}

func (e *ContractViolation) Error() string { return "actor: contract violation: " + e.Reason }

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithLogger installs a sugared zap logger for state-transition and error
// logging. Defaults to zap.NewNop().Sugar().
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithMetrics installs a metrics.Set the coordinator reports commits,
// scheduler-call latency, and gate health against. Without this option the
// coordinator runs uninstrumented.
func WithMetrics(m *metrics.Set) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// Coordinator is the durable actor-state coordinator: Alarm State Cache,
// Transaction Builder, Scheduler Coupler, and Alarm Handler Arming, all
// layered over one db.Database and one scheduler.Scheduler. See doc.go for
// the invariants it upholds.
type Coordinator struct {
	database db.Database
	sched    scheduler.Scheduler
	gate     *gate.Gate
	log      *zap.SugaredLogger
	metrics  *metrics.Set

	mu sync.Mutex

	txnOpen        bool
	savepointDepth int

	committedAlarm *time.Time
	scheduledAlarm *time.Time
	pendingAlarm   *time.Time
	pendingSet     bool

	activeGen *generation

	handler         handlerPhase
	handlerFireTime time.Time
	handlerDirty    bool
	handlerDeferDel bool
}

// New constructs a Coordinator. It reads the currently-durable alarm from
// database so the Alarm State Cache starts consistent with what was last
// committed, and assumes that value is also what the scheduler currently
// knows about — there is no restart-reconciliation protocol; a scheduler
// that lost that alarm needs to be told again out of band.
func New(ctx context.Context, database db.Database, sched scheduler.Scheduler, opts ...Option) (*Coordinator, error) {
	committed, err := database.GetAlarm(ctx)
	if err != nil {
		return nil, fmt.Errorf("actor: read initial alarm: %w", err)
	}
	c := &Coordinator{
		database:       database,
		sched:          sched,
		gate:           gate.New(),
		log:            zap.NewNop().Sugar(),
		committedAlarm: committed,
		scheduledAlarm: committed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Coordinator) brokenErr() error {
	return c.gate.BrokenErr()
}

// breakGate latches the gate broken and reflects it in metrics, if installed.
func (c *Coordinator) breakGate(err error) {
	c.gate.Break(err)
	if c.metrics != nil {
		c.metrics.SetGateBroken(true)
	}
}

func (c *Coordinator) reportCommit(ok bool) {
	if c.metrics == nil {
		return
	}
	if ok {
		c.metrics.CommitsTotal.Inc()
	} else {
		c.metrics.CommitFailuresTotal.Inc()
	}
}

func (c *Coordinator) callScheduler(ctx context.Context, at *time.Time) error {
	start := time.Now()
	err := c.sched.ScheduleRun(ctx, at)
	if c.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "rejected"
		}
		c.metrics.ObserveSchedulerCall(outcome, time.Since(start))
	}
	return err
}

// OnBroken exposes the underlying gate's broken-notification channel.
func (c *Coordinator) OnBroken() <-chan error { return c.gate.OnBroken() }

// BrokenErr returns the latched gate error, or nil if the gate is still
// open. Safe to call from any goroutine; used by introspection endpoints
// that want the current state without subscribing to OnBroken.
func (c *Coordinator) BrokenErr() error { return c.brokenErr() }

// IsCommitScheduled reports whether a flush is currently staged or in
// flight, for callers deciding whether to proactively flush before an
// expensive operation.
func (c *Coordinator) IsCommitScheduled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeGen != nil
}

// Get reads a key, observing the coordinator's own uncommitted writes —
// a read always sees the effect of a Put or Delete already made on this
// coordinator, even before that write's commit lands.
func (c *Coordinator) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := c.brokenErr(); err != nil {
		return nil, false, err
	}
	return c.database.Get(ctx, key)
}

// GetBatch reads several keys (one database read per key), observing the
// same uncommitted writes Get does. Missing keys are simply absent from the
// result map.
func (c *Coordinator) GetBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := c.brokenErr(); err != nil {
		return nil, err
	}
	return c.database.GetBatch(ctx, keys)
}

// GetAlarm returns the pending-or-committed alarm time, or nil while a
// handler is armed.
func (c *Coordinator) GetAlarm() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler == handlerArmed {
		return nil
	}
	return c.effectiveAlarmLocked()
}

// effectiveAlarmLocked must be called with mu held.
func (c *Coordinator) effectiveAlarmLocked() *time.Time {
	if c.pendingSet {
		return c.pendingAlarm
	}
	return c.committedAlarm
}

// ensureOpenLocked opens the implicit transaction and its root savepoint if
// none is open yet. Must be called with mu held.
func (c *Coordinator) ensureOpenLocked(ctx context.Context) error {
	if c.txnOpen {
		return nil
	}
	if err := c.database.Begin(ctx); err != nil {
		return err
	}
	if err := c.database.Savepoint(ctx, rootSavepoint); err != nil {
		_ = c.database.Rollback(ctx)
		return err
	}
	c.txnOpen = true
	return nil
}

// armCommitLocked ensures a generation is driving the currently-open
// transaction toward a durable commit, starting one if none is active. Must
// be called with mu held.
//
// The generation's FIFO position in the output gate is reserved right here,
// synchronously, so concurrent staging calls are published in the order
// they armed a commit. The actual work (runGeneration) starts immediately
// on its own goroutine rather than waiting for its turn to publish — a
// later-direction generation's scheduler call must never block the next
// generation's local commit, only the moment external waiters see it
// settle.
func (c *Coordinator) armCommitLocked(ctx context.Context) {
	if c.activeGen != nil {
		return
	}
	gen := newGeneration()
	c.activeGen = gen
	slot := c.gate.Enqueue()

	go c.runGeneration(ctx, gen)
	go func() {
		_ = slot.Run(ctx, func(ctx context.Context) error {
			<-gen.done
			return gen.err
		})
	}()
}

// Put stages a key/value write directly into the open transaction; the
// write is visible to Get immediately and does not wait for commit.
func (c *Coordinator) Put(ctx context.Context, key string, value []byte) error {
	if err := c.brokenErr(); err != nil {
		return err
	}
	c.mu.Lock()
	if err := c.ensureOpenLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if err := c.database.Put(ctx, key, value); err != nil {
		return err
	}

	c.mu.Lock()
	c.armCommitLocked(ctx)
	c.mu.Unlock()
	return nil
}

// Delete stages a key removal the same way Put stages a write.
func (c *Coordinator) Delete(ctx context.Context, key string) error {
	if err := c.brokenErr(); err != nil {
		return err
	}
	c.mu.Lock()
	if err := c.ensureOpenLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if err := c.database.Delete(ctx, key); err != nil {
		return err
	}

	c.mu.Lock()
	c.armCommitLocked(ctx)
	c.mu.Unlock()
	return nil
}

// SetAlarm stages a new alarm time. Setting it to its current effective
// value is a no-op. The actual db row write and any scheduler
// call are deferred to the commit generation so the Scheduler Coupler can
// decide their relative order.
func (c *Coordinator) SetAlarm(ctx context.Context, at *time.Time) error {
	if err := c.brokenErr(); err != nil {
		return err
	}
	c.mu.Lock()

	effective := c.effectiveAlarmLocked()
	if timeEqualPtr(effective, at) {
		c.mu.Unlock()
		return nil
	}

	if err := c.ensureOpenLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}

	c.pendingSet = true
	c.pendingAlarm = at

	if c.handler == handlerArmed {
		c.handlerDirty = true
		c.handlerDeferDel = false
	}

	c.armCommitLocked(ctx)
	c.mu.Unlock()
	return nil
}

// Flush waits for every currently staged or in-flight commit to settle.
func (c *Coordinator) Flush(ctx context.Context) error {
	return c.gate.Wait(ctx)
}

// Close waits for outstanding work to settle and releases the database
// handle, aggregating any failures with multierr rather than discarding
// all but the first.
func (c *Coordinator) Close(ctx context.Context) error {
	var errs error
	if err := c.gate.Wait(ctx); err != nil && !errors.As(err, new(*gate.BrokenError)) {
		errs = multierr.Append(errs, err)
	}
	errs = multierr.Append(errs, c.database.Close())
	return errs
}

// runGeneration drives one flush of the currently open transaction through
// the Scheduler Coupler to a durable commit. It owns gen exclusively: no
// other goroutine touches gen.err/gen.done until it calls gen.finish.
func (c *Coordinator) runGeneration(ctx context.Context, gen *generation) {
	c.mu.Lock()
	hasAlarm := c.pendingSet
	tOld := c.scheduledAlarm
	c.mu.Unlock()

	dir := dirEqual
	if hasAlarm {
		c.mu.Lock()
		dir = classify(tOld, c.pendingAlarm)
		c.mu.Unlock()
	}

	if dir == dirEarlier {
		if err := c.runSchedulerPrelude(ctx, gen); err != nil {
			return
		}
	}

	alarmValue, err := c.finalizeCommit(ctx, hasAlarm)
	if err != nil {
		gen.finish(err)
		return
	}

	if hasAlarm && (dir == dirLater) {
		// Commit is durable; the scheduler call is not on the critical
		// path for the next generation, so it runs concurrently with
		// whatever staging happens next.
		go func() {
			callErr := c.callScheduler(ctx, alarmValue)
			if callErr != nil {
				c.log.Warnw("scheduler call rejected after commit", "error", callErr)
				c.breakGate(callErr)
			} else {
				c.mu.Lock()
				c.scheduledAlarm = alarmValue
				c.mu.Unlock()
			}
			gen.finish(callErr)
		}()
		return
	}

	gen.finish(nil)
}

// runSchedulerPrelude drives the synchronous prelude for an earlier-direction
// alarm change: it calls ScheduleRun, and if the pending value changed while
// that call was in flight (coalescing), it loops and calls again with the
// latest value until one call settles without the target having moved.
func (c *Coordinator) runSchedulerPrelude(ctx context.Context, gen *generation) error {
	for {
		c.mu.Lock()
		target := c.pendingAlarm
		c.mu.Unlock()

		err := c.callScheduler(ctx, target)
		if err != nil {
			_ = c.database.Rollback(ctx)
			c.mu.Lock()
			c.txnOpen = false
			c.activeGen = nil
			c.mu.Unlock()
			c.log.Warnw("scheduler prelude rejected, breaking gate", "error", err)
			c.breakGate(err)
			gen.finish(err)
			return err
		}

		c.mu.Lock()
		changed := !timeEqualPtr(c.pendingAlarm, target)
		if !changed {
			c.scheduledAlarm = target
		}
		c.mu.Unlock()
		if !changed {
			return nil
		}
	}
}

// finalizeCommit writes the staged alarm value (if any) into the alarm row,
// releases the root savepoint, commits the transaction, and invokes the
// durability-fence callback. On success it returns the alarm value that was
// committed (nil if there was none) and clears the generation.
func (c *Coordinator) finalizeCommit(ctx context.Context, hasAlarm bool) (*time.Time, error) {
	var alarmValue *time.Time
	if hasAlarm {
		c.mu.Lock()
		alarmValue = c.pendingAlarm
		c.mu.Unlock()
		if err := c.database.SetAlarmRow(ctx, alarmValue); err != nil {
			return nil, c.abortCommit(ctx, err)
		}
	}

	if err := c.database.Release(ctx, rootSavepoint); err != nil {
		return nil, c.abortCommit(ctx, err)
	}
	if err := c.database.Commit(ctx); err != nil {
		c.mu.Lock()
		c.txnOpen = false
		c.activeGen = nil
		c.mu.Unlock()
		c.log.Errorw("commit failed, breaking gate", "error", err)
		c.breakGate(err)
		c.reportCommit(false)
		return nil, err
	}

	c.mu.Lock()
	c.txnOpen = false
	if hasAlarm {
		c.committedAlarm = alarmValue
		c.pendingSet = false
		c.pendingAlarm = nil
	}
	c.activeGen = nil
	c.mu.Unlock()

	if err := c.database.CommitCallback(ctx); err != nil {
		// The local write is durable; a failure of the durability fence
		// after COMMIT TRANSACTION is not rolled back locally — it only
		// poisons the gate so callers waiting on read-your-writes
		// ordering observe the failure.
		// TODO: decide whether a failed fence should also force a
		// scheduler reconciliation call once that protocol exists.
		c.log.Errorw("commit callback failed, breaking gate", "error", err)
		c.breakGate(err)
		c.reportCommit(false)
		return nil, err
	}
	c.reportCommit(true)
	return alarmValue, nil
}

func (c *Coordinator) abortCommit(ctx context.Context, cause error) error {
	_ = c.database.Rollback(ctx)
	c.mu.Lock()
	c.txnOpen = false
	c.activeGen = nil
	c.mu.Unlock()
	c.log.Errorw("local write failed, rolling back", "error", cause)
	c.breakGate(cause)
	c.reportCommit(false)
	return cause
}
