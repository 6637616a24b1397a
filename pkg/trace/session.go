package trace

import (
	"fmt"
	"time"

	"github.com/daviddao/actorkv/pkg/seq"
)

// IdFactory generates a session's id. The contract allows any opaque
// string; pkg/idfactory.UUIDFactory is the production implementation.
type IdFactory interface {
	NewID() string
}

// ContractViolation is a fatal assertion failure — onset info set twice,
// or an event added before onset info. SetEventInfo does not panic on
// either — it returns the violation as an error, and callers are expected
// to treat it as an actor-death signal, same as a broken gate.
type ContractViolation struct {
	Reason string
}

func (e *ContractViolation) Error() string { return "trace: contract violation: " + e.Reason }

// spanNode is one slot in the session's span arena. Arena-style storage
// (an index into a map, not an intrusive pointer-linked tree) keeps span
// ownership acyclic without a mark phase to reclaim closed subtrees.
type spanNode struct {
	id            uint32
	parent        uint32
	children      []uint32
	closed        bool
	transactional bool
}

// SpanOption configures a span at creation time.
type SpanOption func(*spanNode)

// WithTransactional marks the span as transactional: if it closes with a
// Canceled or Exception outcome, its SpanClose event is tagged Invalidated
// so a downstream consumer knows everything nested under it belongs to a
// rolled-back attempt.
func WithTransactional() SpanOption {
	return func(n *spanNode) { n.transactional = true }
}

// Session is the root of a tree of spans. It embeds *Span for span id 0
// (the root), so SetOutcome/NewChildSpan/AddLog/etc. are available
// directly on the session without duplicating their logic.
type Session struct {
	*Span

	sessionID     string
	delegate      func(StreamEvent)
	now           func() time.Time
	seqCounter    seq.Counter
	spanIDCounter seq.Counter
	spans         map[uint32]*spanNode

	eventsEmitted int
	infoSet       bool
}

// Span is a nestable grouping of events with an outcome. The zero value
// is not usable; spans are only constructed via Session.NewChildSpan or
// (*Span).NewChildSpan.
type Span struct {
	session *Session
	id      uint32
}

// ID is this span's arena index. The root session is always id 0.
func (sp *Span) ID() uint32 { return sp.id }

// NewSession constructs a trace session: generates its id via idFactory,
// records the root span (id 0), and synchronously emits the Onset event.
// now defaults to time.Now if nil.
func NewSession(idFactory IdFactory, delegate func(StreamEvent), now func() time.Time, onsetTags map[string]string) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{
		sessionID: idFactory.NewID(),
		delegate:  delegate,
		now:       now,
		spans:     map[uint32]*spanNode{0: {id: 0, parent: 0}},
	}
	s.Span = &Span{session: s, id: 0}
	s.emit(0, 0, Payload{Kind: "onset", Onset: &OnsetPayload{Tags: onsetTags}})
	return s
}

// ID is the session's own id, as generated by the IdFactory.
func (s *Session) ID() string { return s.sessionID }

// SetEventInfo may be called at most once, and must precede any event
// besides Onset.
func (s *Session) SetEventInfo(info map[string]string) error {
	if s.infoSet {
		return &ContractViolation{Reason: "onset info set twice"}
	}
	if s.eventsEmitted != 1 {
		return &ContractViolation{Reason: "event added before onset info"}
	}
	s.infoSet = true
	s.emit(0, 0, Payload{Kind: "tags", Tags: &TagsPayload{Tags: info}})
	return nil
}

// Drop ends the session without an explicit outcome, emitting
// Outcome(UNKNOWN) if SetOutcome was never called.
func (s *Session) Drop() {
	if s.spans[0].closed {
		return
	}
	s.SetOutcome(OutcomeUnknown, nil)
}

// emit assigns the next sequence number and calls the delegate
// synchronously. It is the only place a StreamEvent is constructed.
func (s *Session) emit(spanID, parentID uint32, payload Payload) {
	s.eventsEmitted++
	s.delegate(StreamEvent{
		SessionID:   s.sessionID,
		Span:        SpanRef{ID: spanID, Parent: parentID},
		TimestampMS: s.now().UnixMilli(),
		Sequence:    s.seqCounter.Next(),
		Event:       payload,
	})
}

// AddDropped records that sequence numbers [start, end) were observed but
// never reached the sink. It is itself a sequenced event.
func (s *Session) AddDropped(start, end uint32) {
	s.emit(0, 0, Payload{Kind: "dropped", Dropped: &DroppedPayload{Start: start, End: end}})
}

// NewChildSpan creates a child span of sp, returning nil if sp is already
// closed — once a span's outcome has been set, every further event
// method on it is a silent no-op, span creation included.
func (sp *Span) NewChildSpan(tags map[string]string, opts ...SpanOption) *Span {
	s := sp.session
	parent := s.spans[sp.id]
	if parent == nil || parent.closed {
		return nil
	}
	id := s.spanIDCounter.Next() + 1 // id 0 is reserved for the root
	node := &spanNode{id: id, parent: sp.id}
	for _, opt := range opts {
		opt(node)
	}
	s.spans[id] = node
	parent.children = append(parent.children, id)
	return &Span{session: s, id: id}
}

// SetOutcome closes sp: live children are cascaded first (in insertion
// order, recursively), then sp's own terminal event is emitted — Outcome
// for the root session, SpanClose (with the outcome mapped per
// cascadeOutcome) for every other span. A no-op if sp is already closed.
func (sp *Span) SetOutcome(outcome EventOutcome, tags map[string]string) {
	s := sp.session
	node := s.spans[sp.id]
	if node == nil || node.closed {
		return
	}
	s.cascadeChildren(node, outcome)
	node.closed = true

	if sp.id == 0 {
		s.emit(0, 0, Payload{Kind: "outcome", Outcome: &OutcomePayload{Outcome: outcome, Tags: tags}})
		return
	}
	mapped := cascadeOutcome(outcome)
	s.emit(sp.id, node.parent, Payload{
		Kind: "span_close",
		SpanClose: &SpanClosePayload{
			Outcome:     mapped,
			Tags:        tags,
			Invalidated: node.transactional && (mapped == SpanCanceled || mapped == SpanException),
		},
	})
}

// cascadeChildren closes every still-live direct child of node, in
// insertion order, recursing into grandchildren first so SpanClose events
// appear leaf-first within each subtree.
func (s *Session) cascadeChildren(node *spanNode, outcome EventOutcome) {
	for _, childID := range node.children {
		child := s.spans[childID]
		if child.closed {
			continue
		}
		s.cascadeChildren(child, outcome)
		child.closed = true
		mapped := cascadeOutcome(outcome)
		s.emit(childID, child.parent, Payload{
			Kind: "span_close",
			SpanClose: &SpanClosePayload{
				Outcome:     mapped,
				Invalidated: child.transactional && (mapped == SpanCanceled || mapped == SpanException),
			},
		})
	}
}

func (sp *Span) closedLocked() bool {
	node := sp.session.spans[sp.id]
	return node == nil || node.closed
}

// AddLog appends a log event, silently dropped if sp is already closed.
func (sp *Span) AddLog(level, message string) {
	if sp.closedLocked() {
		return
	}
	sp.emitOwn(Payload{Kind: "log", Log: &LogPayload{Level: level, Message: message}})
}

// AddException appends an exception event.
func (sp *Span) AddException(name, message, stack string) {
	if sp.closedLocked() {
		return
	}
	sp.emitOwn(Payload{Kind: "exception", Exception: &ExceptionPayload{Name: name, Message: message, Stack: stack}})
}

// AddDiagnosticChannelEvent appends a diagnostics-channel event.
func (sp *Span) AddDiagnosticChannelEvent(channel, message string) {
	if sp.closedLocked() {
		return
	}
	sp.emitOwn(Payload{Kind: "diag_channel", DiagChannel: &DiagChannelPayload{Channel: channel, Message: message}})
}

// AddMark appends a named marker event.
func (sp *Span) AddMark(name string) {
	if sp.closedLocked() {
		return
	}
	sp.emitOwn(Payload{Kind: "mark", Mark: &MarkPayload{Name: name}})
}

// AddMetrics appends a metrics-snapshot event.
func (sp *Span) AddMetrics(values map[string]float64) {
	if sp.closedLocked() {
		return
	}
	sp.emitOwn(Payload{Kind: "metrics", Metrics: &MetricsPayload{Values: values}})
}

// AddSubrequest appends an outbound-subrequest event.
func (sp *Span) AddSubrequest(method, url string) {
	if sp.closedLocked() {
		return
	}
	sp.emitOwn(Payload{Kind: "subrequest", Subrequest: &SubrequestPayload{Method: method, URL: url}})
}

// AddSubrequestOutcome appends the outcome of a previously recorded subrequest.
func (sp *Span) AddSubrequestOutcome(status int) {
	if sp.closedLocked() {
		return
	}
	sp.emitOwn(Payload{Kind: "subrequest_outcome", SubrequestOutcome: &SubrequestOutcomePayload{Status: status}})
}

// AddCustom appends an arbitrary tags event, used for payload kinds this
// package does not model as a dedicated struct.
func (sp *Span) AddCustom(tags map[string]string) {
	if sp.closedLocked() {
		return
	}
	sp.emitOwn(Payload{Kind: "tags", Tags: &TagsPayload{Tags: tags}})
}

func (sp *Span) emitOwn(payload Payload) {
	node := sp.session.spans[sp.id]
	sp.session.emit(sp.id, node.parent, payload)
}

// String is a debug helper, not part of the wire format.
func (sp *Span) String() string { return fmt.Sprintf("span(%d)", sp.id) }
