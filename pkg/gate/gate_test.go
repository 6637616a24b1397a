package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockWhile_RunsAndSucceeds(t *testing.T) {
	g := New()
	ran := false
	err := g.LockWhile(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestLockWhile_FIFOOrdering(t *testing.T) {
	g := New()
	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_ = g.LockWhile(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// Give each goroutine a chance to enqueue before starting the next,
		// so the FIFO order is deterministic for this test.
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	require.Len(t, order, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestBreak_LatchesFirstFailure(t *testing.T) {
	g := New()
	first := errors.New("first failure")
	second := errors.New("second failure")

	g.Break(first)
	g.Break(second)

	err := g.LockWhile(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn should not run once broken")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.NotErrorIs(t, err, second)
}

func TestLockWhile_FailurePoisonsGate(t *testing.T) {
	g := New()
	boom := errors.New("boom")

	err := g.LockWhile(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// Subsequent calls also fail with the same error.
	err2 := g.LockWhile(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn should not run once broken")
		return nil
	})
	assert.ErrorIs(t, err2, boom)
}

func TestWait_DrainsEnqueuedWork(t *testing.T) {
	g := New()
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = g.LockWhile(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
		close(done)
	}()

	time.Sleep(5 * time.Millisecond) // ensure LockWhile has enqueued

	waitDone := make(chan struct{})
	go func() {
		_ = g.Wait(context.Background())
		close(waitDone)
	}()

	select {
	case <-waitDone:
		t.Fatal("Wait returned before the in-flight op settled")
	case <-time.After(10 * time.Millisecond):
	}

	close(release)
	<-done
	<-waitDone
}

func TestOnBroken_ResolvesWithLatchedError(t *testing.T) {
	g := New()
	boom := errors.New("scheduler rejected")

	errCh := g.OnBroken()
	g.Break(boom)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("OnBroken did not resolve")
	}
}

func TestLockWhile_RespectsContextCancellation(t *testing.T) {
	g := New()
	blocker := make(chan struct{})

	go func() {
		_ = g.LockWhile(context.Background(), func(ctx context.Context) error {
			<-blocker
			return nil
		})
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := g.LockWhile(ctx, func(ctx context.Context) error {
		t.Fatal("fn should not run before predecessor settles")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(blocker)
}
