// Package hostsig connects the timer engine to process signals. Resuming
// after a job-control stop counts as becoming visible again, and an
// interrupt counts as an attempt to exit.
package hostsig

import (
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/joescharf/pomo/internal/timer"
)

// UnloadWarning is shown when the user tries to exit during a running session.
const UnloadWarning = "You have an active focus session. Are you sure you want to quit?"

// DefaultConfirmWindow is how long a warned exit stays armed.
const DefaultConfirmWindow = 3 * time.Second

// Watcher implements timer.Signals on top of os/signal.
type Watcher struct {
	// Warn is called instead of quitting when the engine asks for a
	// warning. A second interrupt within ConfirmWindow calls Quit.
	Warn func()
	// Quit is called when the host should exit.
	Quit          func()
	ConfirmWindow time.Duration

	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)
	now    func() time.Time

	mu     sync.Mutex
	warned time.Time
}

// New returns a watcher with the given exit callbacks.
func New(warn, quit func()) *Watcher {
	return &Watcher{
		Warn:          warn,
		Quit:          quit,
		ConfirmWindow: DefaultConfirmWindow,
		notify:        signal.Notify,
		stop:          signal.Stop,
		now:           time.Now,
	}
}

// Subscribe implements timer.Signals.
func (w *Watcher) Subscribe(h timer.Hooks) func() {
	c := make(chan os.Signal, 4)
	done := make(chan struct{})
	exited := make(chan struct{})

	w.notify(c, append(visibilitySignals(), unloadSignals()...)...)
	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case sig := <-c:
				w.dispatch(sig, h)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.stop(c)
			close(done)
			<-exited
		})
	}
}

func (w *Watcher) dispatch(sig os.Signal, h timer.Hooks) {
	if isVisibility(sig) {
		if h.Visible != nil {
			h.Visible()
		}
		return
	}

	warn := h.BeforeUnload != nil && h.BeforeUnload()
	if warn && !w.armed() {
		w.mu.Lock()
		w.warned = w.now()
		w.mu.Unlock()
		if w.Warn != nil {
			w.Warn()
		}
		return
	}
	if w.Quit != nil {
		w.Quit()
	}
}

func (w *Watcher) armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.warned.IsZero() && w.now().Sub(w.warned) <= w.ConfirmWindow
}

func isVisibility(sig os.Signal) bool {
	for _, s := range visibilitySignals() {
		if s == sig {
			return true
		}
	}
	return false
}
