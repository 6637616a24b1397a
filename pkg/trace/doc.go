// Package trace implements the Streaming Trace module: an append-only,
// globally sequenced event bus with span nesting. A Session is the root of
// a tree of Spans; closing a span (or the session) cascades to its still-
// live children before emitting its own terminal event, and every event —
// including the cascade's — consumes the session's next sequence number.
//
// Both the session and its spans assume exclusive access from one
// actor-local goroutine: there are no locks here, unlike pkg/actor,
// because nothing in this package ever yields or spawns a background
// goroutine. Event emission is a synchronous, same-goroutine call straight
// through to the delegate sink.
//
// Span storage is arena-style: the session owns a map of span id to
// spanNode, and parent/child links are plain uint32 indices rather than
// intrusive pointers. Closed spans are marked closed, not removed: every
// spanNode stays in the session's map for the session's lifetime.
package trace
