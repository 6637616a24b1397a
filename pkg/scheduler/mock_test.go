package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func millis(ms int64) *time.Time {
	t := time.UnixMilli(ms).UTC()
	return &t
}

func TestMock_FulfillResolvesCallSuccessfully(t *testing.T) {
	m := NewMock()
	done := make(chan error, 1)
	go func() { done <- m.ScheduleRun(context.Background(), millis(1)) }()

	require.Eventually(t, func() bool { return m.PendingCount() == 1 }, time.Second, time.Millisecond)
	m.Fulfill()

	err := <-done
	assert.NoError(t, err)
	assert.Equal(t, []Call{{At: millis(1)}}, m.Calls())
}

func TestMock_RejectPropagatesError(t *testing.T) {
	m := NewMock()
	boom := errors.New("a_rejected_scheduleRun")
	done := make(chan error, 1)
	go func() { done <- m.ScheduleRun(context.Background(), millis(1)) }()

	require.Eventually(t, func() bool { return m.PendingCount() == 1 }, time.Second, time.Millisecond)
	m.Reject(boom)

	err := <-done
	assert.ErrorIs(t, err, boom)
}

func TestMock_FIFOResolutionOrder(t *testing.T) {
	m := NewMock()
	results := make(chan error, 3)

	for i, ms := range []int64{4, 3, 2} {
		ms := ms
		go func() { results <- m.ScheduleRun(context.Background(), millis(ms)) }()
		require.Eventually(t, func() bool { return m.PendingCount() == i+1 }, time.Second, time.Millisecond)
	}
	require.Equal(t, 3, m.PendingCount())

	for i := 0; i < 3; i++ {
		m.Fulfill()
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, <-results)
	}
	assert.Equal(t, []Call{{At: millis(4)}, {At: millis(3)}, {At: millis(2)}}, m.Calls())
}

func TestMock_CallsClearsLogOnRead(t *testing.T) {
	m := NewMock()
	go func() { _ = m.ScheduleRun(context.Background(), nil) }()
	require.Eventually(t, func() bool { return m.PendingCount() == 1 }, time.Second, time.Millisecond)
	m.Fulfill()

	first := m.Calls()
	require.Len(t, first, 1)
	assert.Nil(t, first[0].At)

	second := m.Calls()
	assert.Empty(t, second)
}
