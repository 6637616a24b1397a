package trace

import (
	"encoding/json"
	"fmt"
)

// EventOutcome is how a span or session finished, as reported by the
// caller of SetOutcome. It is distinct from SpanCloseOutcome, which is the
// narrower set a non-root span's close event actually records — the
// mapping between them is the span-closing cascade, cascadeOutcome below.
type EventOutcome int

const (
	OutcomeOK EventOutcome = iota
	OutcomeUnknown
	OutcomeCanceled
	OutcomeResponseStreamDisconnected
	OutcomeException
	OutcomeLoadShed
	OutcomeExceededCPU
	OutcomeKillSwitch
	OutcomeDaemonDown
	OutcomeScriptNotFound
	OutcomeExceededMemory
)

var eventOutcomeNames = [...]string{
	"OK", "UNKNOWN", "CANCELED", "RESPONSE_STREAM_DISCONNECTED",
	"EXCEPTION", "LOAD_SHED", "EXCEEDED_CPU", "KILL_SWITCH",
	"DAEMON_DOWN", "SCRIPT_NOT_FOUND", "EXCEEDED_MEMORY",
}

func (o EventOutcome) String() string {
	if int(o) < 0 || int(o) >= len(eventOutcomeNames) {
		return fmt.Sprintf("EventOutcome(%d)", int(o))
	}
	return eventOutcomeNames[o]
}

func (o EventOutcome) MarshalJSON() ([]byte, error) { return json.Marshal(o.String()) }

// SpanCloseOutcome is the outcome actually recorded on a non-root span's
// SpanClose event, after collapsing EventOutcome through the cascade map.
type SpanCloseOutcome int

const (
	SpanOK SpanCloseOutcome = iota
	SpanUnknown
	SpanCanceled
	SpanException
)

var spanCloseOutcomeNames = [...]string{"OK", "UNKNOWN", "CANCELED", "EXCEPTION"}

func (o SpanCloseOutcome) String() string {
	if int(o) < 0 || int(o) >= len(spanCloseOutcomeNames) {
		return fmt.Sprintf("SpanCloseOutcome(%d)", int(o))
	}
	return spanCloseOutcomeNames[o]
}

func (o SpanCloseOutcome) MarshalJSON() ([]byte, error) { return json.Marshal(o.String()) }

// cascadeOutcome maps an EventOutcome to the SpanCloseOutcome a non-root
// span's close event records: OK to OK, UNKNOWN to UNKNOWN, CANCELED and
// RESPONSE_STREAM_DISCONNECTED to CANCELED, everything else to EXCEPTION.
func cascadeOutcome(o EventOutcome) SpanCloseOutcome {
	switch o {
	case OutcomeOK:
		return SpanOK
	case OutcomeUnknown:
		return SpanUnknown
	case OutcomeCanceled, OutcomeResponseStreamDisconnected:
		return SpanCanceled
	default:
		return SpanException
	}
}
