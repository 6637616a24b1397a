package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/actorkv/pkg/trace"
)

func TestSetGateBroken_TogglesGauge(t *testing.T) {
	s := New(prometheus.NewRegistry())

	s.SetGateBroken(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.GateBroken))

	s.SetGateBroken(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(s.GateBroken))
}

func TestObserveSchedulerCall_CountsByOutcome(t *testing.T) {
	s := New(prometheus.NewRegistry())

	s.ObserveSchedulerCall("ok", 10*time.Millisecond)
	s.ObserveSchedulerCall("ok", 20*time.Millisecond)
	s.ObserveSchedulerCall("rejected", 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(s.SchedulerCallsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.SchedulerCallsTotal.WithLabelValues("rejected")))
}

func TestWrapTraceSink_CountsEveryEventAndForwards(t *testing.T) {
	s := New(prometheus.NewRegistry())

	var forwarded []trace.StreamEvent
	sink := s.WrapTraceSink(func(e trace.StreamEvent) {
		forwarded = append(forwarded, e)
	})

	session := trace.NewSession(fixedIDFactory{"s1"}, sink, func() time.Time { return time.UnixMilli(0) }, nil)
	span := session.NewChildSpan(nil)
	span.SetOutcome(trace.OutcomeOK, nil)
	session.SetOutcome(trace.OutcomeOK, nil)

	require.Len(t, forwarded, 3) // onset, span_close, outcome
	assert.Equal(t, float64(1), testutil.ToFloat64(s.TraceEventsTotal.WithLabelValues("onset")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.TraceEventsTotal.WithLabelValues("span_close")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.TraceEventsTotal.WithLabelValues("outcome")))
}

type fixedIDFactory struct{ id string }

func (f fixedIDFactory) NewID() string { return f.id }
