// Package scheduler defines the coordinator's Scheduler capability: the
// single method the actor uses to tell the external alarm scheduler what
// time it should next fire at. The scheduler's own implementation is an
// external collaborator — this package only defines the narrow interface
// the coordinator depends on, plus two adapters: an in-memory Mock for
// tests and a GRPCClient for production.
package scheduler

import (
	"context"
	"time"
)

// Scheduler tells an external alarm scheduler when to next fire. At most
// one call is outstanding per coordinator at a time; a nil at cancels any
// pending alarm.
type Scheduler interface {
	ScheduleRun(ctx context.Context, at *time.Time) error
}
