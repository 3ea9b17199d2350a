package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSession_CompletesWhenProducerReturns(t *testing.T) {
	s := NewStreamSession(context.Background(), "s1", 0, func(ctx context.Context, emit func(any) bool) error {
		for i := 1; i <= 3; i++ {
			if !emit(i) {
				return ctx.Err()
			}
		}
		return nil
	})

	var got []Notification
	for n := range s.Notifications() {
		got = append(got, n)
	}

	require.Len(t, got, 3)
	for i, n := range got {
		assert.Equal(t, "s1", n.SubscriptionID)
		assert.Equal(t, uint64(i+1), n.Seq)
		assert.Equal(t, i+1, n.Payload)
		assert.False(t, n.Timestamp.IsZero())
	}

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after producer returned")
	}
	assert.True(t, s.IsCompleted())
	assert.NoError(t, s.Err())
	assert.False(t, s.IsDisposed())
}

func TestStreamSession_ProducerError(t *testing.T) {
	boom := errors.New("source failed")
	s := NewStreamSession(context.Background(), "s1", 1, func(context.Context, func(any) bool) error {
		return boom
	})

	require.NoError(t, s.Wait(context.Background()))
	assert.True(t, s.IsCompleted())
	assert.ErrorIs(t, s.Err(), boom)
}

func TestStreamSession_DisposeCancelsProducer(t *testing.T) {
	started := make(chan struct{})
	s := NewStreamSession(context.Background(), "s1", 1, func(ctx context.Context, emit func(any) bool) error {
		close(started)
		<-ctx.Done()
		assert.False(t, emit("late"), "emit after dispose must fail")
		return ctx.Err()
	})
	<-started

	assert.False(t, s.IsCompleted())
	assert.NoError(t, s.Err(), "no result before completion")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Dispose())
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.True(t, s.IsDisposed())
	assert.True(t, s.IsCompleted())
	assert.ErrorIs(t, s.Err(), context.Canceled)
}

func TestStreamSession_SeqContiguousAcrossCancellation(t *testing.T) {
	const emitters = 8

	s := NewStreamSession(context.Background(), "s1", 1, func(ctx context.Context, emit func(any) bool) error {
		var wg sync.WaitGroup
		for i := 0; i < emitters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for emit(i) {
				}
			}()
		}
		wg.Wait()
		return ctx.Err()
	})

	var got []uint64
	for n := range s.Notifications() {
		got = append(got, n.Seq)
		if len(got) == 20 {
			require.NoError(t, s.Dispose())
		}
	}

	require.GreaterOrEqual(t, len(got), 20)
	for i, seq := range got {
		assert.Equal(t, uint64(i+1), seq, "notification %d", i)
	}
}

func TestStreamSession_ParentContextCancels(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := NewStreamSession(parent, "s1", 1, func(ctx context.Context, _ func(any) bool) error {
		<-ctx.Done()
		return ctx.Err()
	})

	cancel()

	require.NoError(t, s.Wait(context.Background()))
	assert.False(t, s.IsDisposed())
}

func TestStreamSession_WaitHonoursContext(t *testing.T) {
	s := NewStreamSession(context.Background(), "s1", 1, func(ctx context.Context, _ func(any) bool) error {
		<-ctx.Done()
		return nil
	})
	defer s.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestStreamSession_RegistryRemovesOnCompletion(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	release := make(chan struct{})
	s := NewStreamSession(context.Background(), "s1", 1, func(ctx context.Context, _ func(any) bool) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	require.NoError(t, r.Register(s))
	assert.Equal(t, 1, r.Len())

	close(release)

	assert.Eventually(t, func() bool { return r.Len() == 0 && s.IsDisposed() }, time.Second, time.Millisecond)
	assert.NoError(t, s.Err())
}

func TestStreamSession_RegistryDisposeCancelsStreams(t *testing.T) {
	r := newTestRegistry(t, RegistryConfig{})

	var streams []*StreamSession
	for _, id := range []string{"a", "b", "c"} {
		s := NewStreamSession(context.Background(), id, 1, func(ctx context.Context, _ func(any) bool) error {
			<-ctx.Done()
			return ctx.Err()
		})
		require.NoError(t, r.Register(s))
		streams = append(streams, s)
	}

	require.NoError(t, r.Dispose())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, s := range streams {
		require.NoError(t, s.Wait(ctx))
		assert.True(t, s.IsDisposed())
		assert.ErrorIs(t, s.Err(), context.Canceled)
	}
}
