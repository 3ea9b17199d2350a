// Package soak drives many connections and streams through concurrent
// start, stop, self-completion and close, then checks that every started
// stream was disposed exactly once.
package soak

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mash-protocol/mash-subs/pkg/connection"
	"github.com/mash-protocol/mash-subs/pkg/log"
	"github.com/mash-protocol/mash-subs/pkg/subscription"
)

const disposeGrace = 2 * time.Second

var (
	// ErrLeaked is returned by Run when a started stream was never disposed.
	ErrLeaked = errors.New("streams leaked")

	// ErrDisposedTwice is returned by Run when a stream was disposed more
	// than once.
	ErrDisposedTwice = errors.New("streams disposed more than once")
)

// Options configures a soak run.
type Options struct {
	// Connections is the number of connections opened.
	Connections int

	// Streams is the number of streams started per connection.
	Streams int

	// Workers bounds how many connections run at once.
	Workers int

	// DuplicateRatio is the chance that a stream reuses an id already started
	// on the same connection.
	DuplicateRatio float64

	// CompleteRatio is the chance that a stream completes on its own instead
	// of running until stopped or torn down.
	CompleteRatio float64

	// StopRatio is the chance that a running stream is stopped explicitly
	// while its connection is closing.
	StopRatio float64

	// Notifications is how many payloads a completing stream emits.
	Notifications int

	// Seed makes the run reproducible.
	Seed uint64

	// NewConfig returns the connection config for the i-th connection.
	// Deliver is overwritten by the soak run and EventLogger is wrapped to
	// count disposals.
	NewConfig func(i int) connection.Config
}

// DefaultOptions returns a moderate run.
func DefaultOptions() Options {
	return Options{
		Connections:    50,
		Streams:        40,
		Workers:        8,
		DuplicateRatio: 0.1,
		CompleteRatio:  0.4,
		StopRatio:      0.3,
		Notifications:  5,
		Seed:           1,
	}
}

// Result summarizes a soak run.
type Result struct {
	Connections   int
	Started       int64
	Rejected      int64
	Stopped       int64
	Delivered     int64
	CloseFailures int64
	Leaked        int64
	DoubleDispose int64
	Elapsed       time.Duration
}

func (r Result) String() string {
	return fmt.Sprintf("connections=%d started=%d rejected=%d stopped=%d delivered=%d close_failures=%d leaked=%d double_dispose=%d elapsed=%s",
		r.Connections, r.Started, r.Rejected, r.Stopped, r.Delivered, r.CloseFailures, r.Leaked, r.DoubleDispose, r.Elapsed.Round(time.Millisecond))
}

type runner struct {
	opts    Options
	tracker *connection.Tracker

	started       atomic.Int64
	rejected      atomic.Int64
	stopped       atomic.Int64
	delivered     atomic.Int64
	closeFailures atomic.Int64
	leaked        atomic.Int64
	doubleDispose atomic.Int64
}

// Run executes the soak described by opts. It returns ErrLeaked if any
// accepted stream was not disposed shortly after its connection closed, and
// ErrDisposedTwice if any was disposed more than once.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Connections <= 0 || opts.Streams <= 0 {
		return Result{}, fmt.Errorf("connections and streams must be positive")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.NewConfig == nil {
		opts.NewConfig = func(int) connection.Config { return connection.Config{} }
	}

	r := &runner{opts: opts, tracker: connection.NewTracker()}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < opts.Connections; i++ {
		g.Go(func() error {
			return r.runConnection(gctx, i)
		})
	}
	err := g.Wait()

	if _, closeErr := r.tracker.CloseAll(); closeErr != nil {
		r.closeFailures.Add(1)
	}

	res := Result{
		Connections:   opts.Connections,
		Started:       r.started.Load(),
		Rejected:      r.rejected.Load(),
		Stopped:       r.stopped.Load(),
		Delivered:     r.delivered.Load(),
		CloseFailures: r.closeFailures.Load(),
		Leaked:        r.leaked.Load(),
		DoubleDispose: r.doubleDispose.Load(),
		Elapsed:       time.Since(start),
	}
	if err != nil {
		return res, err
	}
	var errs []error
	if res.Leaked > 0 {
		errs = append(errs, fmt.Errorf("%d %w", res.Leaked, ErrLeaked))
	}
	if res.DoubleDispose > 0 {
		errs = append(errs, fmt.Errorf("%d %w", res.DoubleDispose, ErrDisposedTwice))
	}
	return res, errors.Join(errs...)
}

func (r *runner) runConnection(ctx context.Context, i int) error {
	rng := rand.New(rand.NewPCG(r.opts.Seed, uint64(i)))

	config := r.opts.NewConfig(i)
	config.Deliver = func(subscription.Notification) {
		r.delivered.Add(1)
	}
	disposals := &disposalCounter{next: config.EventLogger, counts: make(map[string]int)}
	config.EventLogger = disposals
	conn, err := connection.New(ctx, config)
	if err != nil {
		return fmt.Errorf("connection %d: %w", i, err)
	}
	r.tracker.Add(conn)
	defer r.tracker.Remove(conn.ID())

	var accepted []*subscription.StreamSession
	var running []string
	for j := 0; j < r.opts.Streams; j++ {
		id := fmt.Sprintf("sub-%d", j)
		if j > 0 && rng.Float64() < r.opts.DuplicateRatio {
			id = fmt.Sprintf("sub-%d", rng.IntN(j))
		}

		producer := r.blockingProducer
		completes := rng.Float64() < r.opts.CompleteRatio
		if completes {
			producer = r.completingProducer(r.opts.Notifications)
		}

		s, err := conn.Start(id, producer)
		switch {
		case errors.Is(err, subscription.ErrDuplicateID):
			r.rejected.Add(1)
			continue
		case err != nil:
			return fmt.Errorf("connection %d: %w", i, err)
		}
		r.started.Add(1)
		accepted = append(accepted, s)
		if !completes && rng.Float64() < r.opts.StopRatio {
			running = append(running, id)
		}
	}

	// Stops race the connection close and the streams' own completion.
	var wg sync.WaitGroup
	for _, id := range running {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := conn.Stop(id)
			switch {
			case err == nil:
				r.stopped.Add(1)
			case errors.Is(err, subscription.ErrRegistryDisposed):
			default:
				r.closeFailures.Add(1)
			}
		}()
	}
	if err := conn.Close(); err != nil {
		r.closeFailures.Add(1)
	}
	wg.Wait()

	// Ids can be reused once a stream completes, so each id expects one
	// disposal per accepted stream.
	want := make(map[string]int, len(accepted))
	for _, s := range accepted {
		want[s.ID()]++
	}

	// A stream that completed during teardown is disposed by its completion
	// watcher, which may still be running when Close returns.
	deadline := time.Now().Add(disposeGrace)
	for !disposals.reached(want) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	for id, n := range want {
		switch got := disposals.count(id); {
		case got < n:
			r.leaked.Add(int64(n - got))
		case got > n:
			r.doubleDispose.Add(int64(got - n))
		}
	}
	return nil
}

// disposalCounter counts session DISPOSED events per subscription id and
// forwards every event to next.
type disposalCounter struct {
	next log.Logger

	mu     sync.Mutex
	counts map[string]int
}

func (d *disposalCounter) Log(e log.Event) {
	if e.Entity == log.EntitySession && e.StateChange != nil && e.StateChange.NewState == log.StateDisposed {
		d.mu.Lock()
		d.counts[e.SubscriptionID]++
		d.mu.Unlock()
	}
	if d.next != nil {
		d.next.Log(e)
	}
}

func (d *disposalCounter) count(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[id]
}

func (d *disposalCounter) reached(want map[string]int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, n := range want {
		if d.counts[id] < n {
			return false
		}
	}
	return true
}

func (r *runner) blockingProducer(ctx context.Context, _ func(any) bool) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *runner) completingProducer(n int) subscription.Producer {
	return func(ctx context.Context, emit func(any) bool) error {
		for k := 0; k < n; k++ {
			if !emit(k) {
				return ctx.Err()
			}
		}
		return nil
	}
}
