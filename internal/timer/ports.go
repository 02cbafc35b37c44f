package timer

import (
	"context"
	"sync"
	"time"
)

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Driver schedules the periodic countdown tick. Start begins calling tick
// every interval until the returned stop function is called. stop must be
// safe to call from inside tick and must not block waiting for it.
type Driver interface {
	Start(interval time.Duration, tick func()) (stop func())
}

// TickerDriver drives ticks from a time.Ticker on its own goroutine.
type TickerDriver struct{}

func (TickerDriver) Start(interval time.Duration, tick func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Recorder persists finished sessions. It may fail; the engine logs and
// drops the error.
type Recorder interface {
	RecordSession(ctx context.Context, rec Record) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec Record) error

func (f RecorderFunc) RecordSession(ctx context.Context, rec Record) error { return f(ctx, rec) }

// Notifier alerts the user that a session ended. Best effort.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, minutes int) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, kind Kind, minutes int) error

func (f NotifierFunc) Notify(ctx context.Context, kind Kind, minutes int) error {
	return f(ctx, kind, minutes)
}

// Hooks are the callbacks the engine registers with the host environment.
type Hooks struct {
	// Visible is called when the host regains the foreground.
	Visible func()
	// BeforeUnload is called when the host is about to exit. It returns
	// true when the user should be warned first.
	BeforeUnload func() bool
}

// Signals is the host-environment port. Subscribe registers hooks and
// returns a function that removes them.
type Signals interface {
	Subscribe(h Hooks) (unsubscribe func())
}

type nopRecorder struct{}

func (nopRecorder) RecordSession(context.Context, Record) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Kind, int) error { return nil }
