// Package frameloop runs an engine on one goroutine for hosts that have no
// display refresh callback of their own (the live server, the terminal).
package frameloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrRunning is returned by Run when the loop is already running
var ErrRunning = errors.New("frameloop: already running")

// ErrStopped is returned by Run once a previous Run has returned
var ErrStopped = errors.New("frameloop: stopped")

// Driver is what the loop advances. *conceptmap.Engine satisfies it.
type Driver interface {
	Frame(dt time.Duration)
	Animating() bool
}

// Loop owns a Driver. Every access to the driver goes through Post so the
// driver itself needs no locking.
type Loop struct {
	driver  Driver
	limiter *rate.Limiter
	posts   chan func()
	wake    chan struct{}
	stopped chan struct{}
	stop    sync.Once
	running atomic.Bool
	// requested forces one frame even when the driver is idle
	requested atomic.Bool

	onFrame func()
	now     func() time.Time
	log     *slog.Logger
}

// Option configures a Loop
type Option func(*Loop)

// WithOnFrame calls fn on the loop goroutine after every frame
func WithOnFrame(fn func()) Option { return func(l *Loop) { l.onFrame = fn } }

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option { return func(l *Loop) { l.log = log } }

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(l *Loop) { l.now = now } }

// New creates a loop producing at most fps frames per second. fps <= 0
// means unlimited.
func New(d Driver, fps int, opts ...Option) *Loop {
	limit := rate.Inf
	if fps > 0 {
		limit = rate.Limit(fps)
	}
	l := &Loop{
		driver:  d,
		limiter: rate.NewLimiter(limit, 1),
		posts:   make(chan func(), 256),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Post queues fn to run on the loop goroutine before the next frame. It
// blocks while the queue is full and Run is still going. Once Run has
// returned fn is dropped and Post reports false.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.posts <- fn:
		l.signal()
		return true
	case <-l.stopped:
		return false
	}
}

// RequestFrame asks for one frame even if the driver is not animating
func (l *Loop) RequestFrame() {
	l.requested.Store(true)
	l.signal()
}

// IsRunning reports whether Run is active
func (l *Loop) IsRunning() bool { return l.running.Load() }

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drives frames until ctx is done. A Loop runs once. While the driver is idle and no
// frame is requested the loop sleeps until Post or RequestFrame.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}
	defer l.stop.Do(func() { close(l.stopped) })

	last := l.now()
	for {
		if !l.requested.Load() && !l.driver.Animating() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case fn := <-l.posts:
				fn()
			case <-l.wake:
			}
			last = l.now()
		}
		l.drain()

		if err := l.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		l.drain()

		now := l.now()
		dt := now.Sub(last)
		last = now
		l.requested.Store(false)
		l.driver.Frame(dt)
		if l.onFrame != nil {
			l.onFrame()
		}
	}
}

// drain runs every queued post without blocking
func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.posts:
			fn()
		default:
			return
		}
	}
}
