// Package actor implements the durable actor-state coordinator: the
// Alarm State Cache, Transaction Builder, Scheduler Coupler, and Alarm
// Handler Arming. It sits between a db.Database (the embedded SQL engine)
// and a scheduler.Scheduler (the external alarm service), gated by a
// gate.Gate so that no effect of either is ever reported to the outside
// world before it is durable.
//
// Invariants, restated next to the code that enforces them:
//
//  1. If the gate is broken, every subsequent read/write/alarm op fails
//     with the broken error. Enforced by brokenErr() at the top of Get,
//     GetBatch, Put, Delete, SetAlarm, StartTransaction and
//     ArmAlarmHandler. GetAlarm has no error result and does not check:
//     after the gate breaks it keeps returning the cached alarm value.
//  2. A scheduler call for an earlier alarm time completes before the
//     local commit that first makes it durable; a scheduler call for a
//     later time (or none) completes after. Enforced by runGeneration's
//     direction classification.
//  3. Between any two acknowledged commits, at most one scheduler call is
//     in flight per logical alarm change. Enforced by driving exactly one
//     generation's scheduler loop at a time.
//  4. GetAlarm returns pending-or-committed, except none while a handler
//     is armed. Enforced in GetAlarm.
//  5. Setting the alarm to its current effective value is a pure no-op.
//     Enforced in SetAlarm before any staging happens.
//  6. Dropping a handler token with no writes clears the alarm (deferred
//     deletion); with writes, it keeps the dirty value; explicit
//     cancel-deferred-deletion keeps the previous value. Enforced in
//     HandlerToken.Drop.
//
// The coordinator assumes a single actor-local goroutine drives its
// public methods — internal bookkeeping is still mutex-protected because
// the scheduler coupler genuinely runs scheduler/commit calls on
// background goroutines (there is no implicit per-turn event loop to hang
// off of), but two public methods racing from different goroutines is a
// caller bug, not a supported usage.
package actor
