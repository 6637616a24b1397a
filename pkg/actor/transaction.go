package actor

import (
	"context"
	"fmt"
	"time"
)

// Transaction is a nested savepoint scope opened by StartTransaction. Its
// Put/Delete/SetAlarm calls stage into the same coordinator state as the
// top-level methods — the transaction only adds a rollback boundary. A
// nested commit never talks to the scheduler or flushes externally on its
// own; only the outermost commit does, and that holds trivially here since
// every staging call already arms the coordinator's single commit
// generation, and Commit only releases this transaction's savepoint.
type Transaction struct {
	c      *Coordinator
	name   string
	depth  int
	closed bool
}

// StartTransaction opens a new nested savepoint inside the implicit
// transaction, creating the implicit transaction first if none is open yet.
func (c *Coordinator) StartTransaction(ctx context.Context) (*Transaction, error) {
	if err := c.brokenErr(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if err := c.ensureOpenLocked(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.savepointDepth++
	depth := c.savepointDepth
	c.mu.Unlock()

	name := fmt.Sprintf("_cf_savepoint_%d", depth)
	if err := c.database.Savepoint(ctx, name); err != nil {
		c.mu.Lock()
		c.savepointDepth--
		c.mu.Unlock()
		return nil, err
	}
	return &Transaction{c: c, name: name, depth: depth}, nil
}

// Put stages a write scoped to this transaction (rolled back along with it).
func (t *Transaction) Put(ctx context.Context, key string, value []byte) error {
	if t.closed {
		return &ContractViolation{Reason: "Put after transaction closed"}
	}
	return t.c.Put(ctx, key, value)
}

// Delete stages a removal scoped to this transaction.
func (t *Transaction) Delete(ctx context.Context, key string) error {
	if t.closed {
		return &ContractViolation{Reason: "Delete after transaction closed"}
	}
	return t.c.Delete(ctx, key)
}

// SetAlarm stages an alarm change. The pending alarm is coordinator-wide,
// not kept per savepoint, so Rollback of this transaction does not undo it.
func (t *Transaction) SetAlarm(ctx context.Context, at *time.Time) error {
	if t.closed {
		return &ContractViolation{Reason: "SetAlarm after transaction closed"}
	}
	return t.c.SetAlarm(ctx, at)
}

// Commit releases this transaction's savepoint, folding its staged changes
// into the enclosing scope. It does not by itself trigger a flush to the
// database or scheduler — that already happened (or will happen) via
// whichever Put/Delete/SetAlarm call armed the coordinator's commit
// generation.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.closed {
		return &ContractViolation{Reason: "Commit called twice"}
	}
	t.closed = true
	if err := t.c.database.Release(ctx, t.name); err != nil {
		return err
	}
	t.c.mu.Lock()
	t.c.savepointDepth--
	t.c.mu.Unlock()
	return nil
}

// Rollback discards every key write and delete staged since this
// transaction was opened, without affecting the enclosing scope. Alarm
// changes are not discarded: a SetAlarm made inside the transaction stays
// staged after Rollback, and the enclosing scope's earlier pending alarm is
// not restored.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.closed {
		return &ContractViolation{Reason: "Rollback after transaction closed"}
	}
	t.closed = true
	if err := t.c.database.RollbackTo(ctx, t.name); err != nil {
		return err
	}
	if err := t.c.database.Release(ctx, t.name); err != nil {
		return err
	}
	t.c.mu.Lock()
	t.c.savepointDepth--
	t.c.mu.Unlock()
	return nil
}
