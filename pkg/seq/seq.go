// Package seq is the monotonic counter core behind the streaming trace's
// per-session sequence numbers and span ids.
//
// It is adapted from a Lamport logical clock: Tick (here Next), Value and
// Set survive, but Receive and the cross-agent total order are gone. The
// actor coordinator is single-writer — there is never a second counter
// to merge with.
//
// Not goroutine-safe — every owner in this codebase is confined to a
// single actor-local goroutine.
package seq

// Counter is a strictly increasing, zero-based sequence generator.
type Counter struct {
	n uint32
}

// Next returns the next sequence number, starting at 0 for the first call.
func (c *Counter) Next() uint32 {
	v := c.n
	c.n++
	return v
}

// Value returns the number the next call to Next will issue, without
// advancing — equivalently, how many numbers have been issued since zero.
func (c *Counter) Value() uint32 { return c.n }

// Set forces the counter to a specific value. Used to resume numbering
// (e.g. a span id allocator restarting from the session's running count).
func (c *Counter) Set(v uint32) { c.n = v }
