package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"apctl/internal/activity"
	"apctl/internal/view"
)

// DefaultInterval is the auto refresh period.
const DefaultInterval = 5 * time.Second

// RefreshFunc is invoked on every tick.
type RefreshFunc func(ctx context.Context) error

// Options configure a Scheduler.
type Options struct {
	Interval time.Duration
	Log      *activity.Log
	View     *view.View
	Logger   *slog.Logger
}

// Scheduler owns the auto refresh timer. At most one ticker loop is armed
// at any time. Each tick starts its own refresh; ticks are not coalesced
// and an in-flight refresh is not cancelled when the timer is disabled.
type Scheduler struct {
	ctx      context.Context
	refresh  RefreshFunc
	interval time.Duration
	log      *activity.Log
	view     *view.View
	logger   *slog.Logger

	mu      sync.Mutex
	enabled bool
	stop    chan struct{}
	done    chan struct{}

	loops atomic.Int32
	ticks sync.WaitGroup
}

// New creates a disabled scheduler. Ticks run on ctx, which should live as
// long as the application. When ctx ends, an armed timer disarms itself.
func New(ctx context.Context, refresh RefreshFunc, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		ctx:      ctx,
		refresh:  refresh,
		interval: opts.Interval,
		log:      opts.Log,
		view:     opts.View,
		logger:   opts.Logger.With("component", "scheduler"),
	}
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Enabled reports whether the timer is armed.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Toggle flips the timer and returns the new state.
func (s *Scheduler) Toggle() bool {
	s.mu.Lock()
	on := !s.enabled
	if on {
		s.enableLocked()
	} else {
		s.disableLocked()
	}
	s.mu.Unlock()
	s.announce(on)
	return on
}

// Enable arms the timer, replacing any existing one.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	s.enableLocked()
	s.mu.Unlock()
	s.announce(true)
}

// Disable disarms the timer. Calling it while disabled is a no-op.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	was := s.enabled
	s.disableLocked()
	s.mu.Unlock()
	if was {
		s.announce(false)
	}
}

// Stop disarms the timer and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.disableLocked()
	s.mu.Unlock()
	s.ticks.Wait()
}

func (s *Scheduler) enableLocked() {
	s.disableLocked()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.enabled = true
	s.loops.Add(1)
	go s.loop(s.stop, s.done)
}

func (s *Scheduler) disableLocked() {
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
		s.done = nil
	}
	s.enabled = false
}

func (s *Scheduler) loop(stop chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer s.loops.Add(-1)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			s.ticks.Add(1)
			go s.expire(stop)
			return
		case <-ticker.C:
			s.ticks.Add(1)
			go s.tick()
		}
	}
}

// expire disarms the timer after the application context ends, unless it
// was already replaced or disabled.
func (s *Scheduler) expire(stop chan struct{}) {
	defer s.ticks.Done()
	s.mu.Lock()
	if s.stop != stop {
		s.mu.Unlock()
		return
	}
	s.disableLocked()
	s.mu.Unlock()
	s.announce(false)
}

func (s *Scheduler) tick() {
	defer s.ticks.Done()
	if err := s.refresh(s.ctx); err != nil {
		s.logger.Warn("auto refresh failed", "err", err)
		if s.log != nil {
			s.log.Add("ERROR auto refresh: %s", err.Error())
		}
	}
}

func (s *Scheduler) announce(on bool) {
	if s.view != nil {
		s.view.SetAuto(on)
	}
	if s.log == nil {
		return
	}
	if on {
		s.log.Add("Auto refresh ON (%s)", s.interval)
	} else {
		s.log.Add("Auto refresh OFF")
	}
}

// activeLoops reports how many ticker loops are running.
func (s *Scheduler) activeLoops() int {
	return int(s.loops.Load())
}
