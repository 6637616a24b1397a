package trace

// SpanRef identifies the span (and its parent) a StreamEvent belongs to.
type SpanRef struct {
	ID     uint32 `json:"id"`
	Parent uint32 `json:"parent"`
}

// StreamEvent is one record of the trace wire format: a session id, the
// span it belongs to, a timestamp, a monotonic per-session sequence
// number, and exactly one payload kind.
//
// The field is named "timestamp_ms" because that is what it always
// carries — milliseconds since the Unix epoch, not nanoseconds.
type StreamEvent struct {
	SessionID   string  `json:"id"`
	Span        SpanRef `json:"span"`
	TimestampMS int64   `json:"timestamp_ms"`
	Sequence    uint32  `json:"sequence"`
	Event       Payload `json:"event"`
}

// Payload is a tagged union over the twelve event kinds a trace can
// emit. Kind discriminates which of the other (mutually exclusive) fields
// is populated; omitempty keeps the wire format compact without
// hand-rolling a custom MarshalJSON for every call site.
type Payload struct {
	Kind string `json:"kind"`

	Onset             *OnsetPayload             `json:"onset,omitempty"`
	Outcome           *OutcomePayload           `json:"outcome,omitempty"`
	Dropped           *DroppedPayload           `json:"dropped,omitempty"`
	SpanClose         *SpanClosePayload         `json:"span_close,omitempty"`
	Log               *LogPayload               `json:"log,omitempty"`
	Exception         *ExceptionPayload         `json:"exception,omitempty"`
	DiagChannel       *DiagChannelPayload       `json:"diag_channel,omitempty"`
	Mark              *MarkPayload              `json:"mark,omitempty"`
	Metrics           *MetricsPayload           `json:"metrics,omitempty"`
	Subrequest        *SubrequestPayload        `json:"subrequest,omitempty"`
	SubrequestOutcome *SubrequestOutcomePayload `json:"subrequest_outcome,omitempty"`
	Tags              *TagsPayload              `json:"tags,omitempty"`
}

type OnsetPayload struct {
	Tags map[string]string `json:"tags,omitempty"`
}

type OutcomePayload struct {
	Outcome EventOutcome      `json:"outcome"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// DroppedPayload records that sequence numbers in [Start, End) were
// generated but never reached the sink.
type DroppedPayload struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

type SpanClosePayload struct {
	Outcome SpanCloseOutcome  `json:"outcome"`
	Tags    map[string]string `json:"tags,omitempty"`

	// Invalidated is set when a transactional span (trace.WithTransactional)
	// closes with a Canceled or Exception outcome: every event nested under
	// this span, already emitted, should be treated as belonging to a
	// rolled-back attempt rather than as fact.
	Invalidated bool `json:"invalidated,omitempty"`
}

type LogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type ExceptionPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

type DiagChannelPayload struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

type MarkPayload struct {
	Name string `json:"name"`
}

type MetricsPayload struct {
	Values map[string]float64 `json:"values"`
}

type SubrequestPayload struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type SubrequestOutcomePayload struct {
	Status int `json:"status"`
}

type TagsPayload struct {
	Tags map[string]string `json:"tags"`
}
