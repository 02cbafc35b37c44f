package timer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// TickInterval is the period of the countdown driver.
	TickInterval = time.Second
	// DriftThreshold is how far tick scheduling may slip before the
	// countdown is corrected.
	DriftThreshold = 100 * time.Millisecond
	// DefaultRecordTimeout bounds a single Recorder call.
	DefaultRecordTimeout = 30 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithDriver replaces the countdown driver.
func WithDriver(d Driver) Option { return func(e *Engine) { e.driver = d } }

// WithRecorder sets the collaborator that persists completed sessions.
func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithNotifier sets the collaborator that alerts the user on completion.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithSignals attaches the engine to host visibility and unload signals.
func WithSignals(s Signals) Option { return func(e *Engine) { e.signals = s } }

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithRecordTimeout bounds each Recorder call.
func WithRecordTimeout(d time.Duration) Option { return func(e *Engine) { e.recordTimeout = d } }

// Engine owns at most one active focus session and drives its countdown
// against wall-clock time.
type Engine struct {
	settings      Settings
	clock         Clock
	driver        Driver
	recorder      Recorder
	notifier      Notifier
	signals       Signals
	logger        *slog.Logger
	recordTimeout time.Duration

	mu         sync.Mutex
	current    *Session
	stop       func() // nil when no driver is running
	generation uint64
	lastTick   time.Time
	drift      time.Duration

	subs       map[EventType][]subscriber
	nextSubID  uint64
	queue      []Event
	delivering bool

	unsubscribe func()
	closed      bool
	effects     sync.WaitGroup
}

// New creates an engine. Every duration in settings must be positive.
func New(settings Settings, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		settings:      settings,
		clock:         systemClock{},
		driver:        TickerDriver{},
		recorder:      nopRecorder{},
		notifier:      nopNotifier{},
		logger:        slog.Default(),
		recordTimeout: DefaultRecordTimeout,
		subs:          make(map[EventType][]subscriber),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.signals != nil {
		e.unsubscribe = e.signals.Subscribe(Hooks{
			Visible:      e.Resync,
			BeforeUnload: e.Running,
		})
	}
	return e, nil
}

// Settings returns the engine's default durations.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Start creates a running session. It fails with ErrAlreadyActive while
// another session is running or paused.
func (e *Engine) Start(opts StartOptions) (Session, error) {
	if !opts.Kind.Valid() {
		return Session{}, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}
	minutes := opts.DurationMinutes
	if minutes <= 0 {
		minutes, _ = e.settings.Minutes(opts.Kind)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Session{}, ErrClosed
	}
	if cur := e.current; cur != nil {
		e.mu.Unlock()
		return Session{}, fmt.Errorf("%w: session %s is %s", ErrAlreadyActive, cur.ID, cur.Status)
	}

	now := e.clock.Now()
	e.current = &Session{
		ID:               ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		TaskID:           opts.TaskID,
		Kind:             opts.Kind,
		PlannedMinutes:   minutes,
		StartedAt:        now,
		RemainingSeconds: minutes * 60,
		Status:           StatusRunning,
	}
	e.lastTick = now
	e.drift = 0
	e.startDriverLocked()

	snap := *e.current
	e.emitLocked(Started{Session: snap})
	e.deliver()
	return snap, nil
}

// Pause stops the countdown of a running session.
func (e *Engine) Pause() {
	e.mu.Lock()
	s := e.current
	if s == nil || s.Status != StatusRunning {
		e.mu.Unlock()
		return
	}
	e.stopDriverLocked()
	s.Status = StatusPaused
	e.emitLocked(Paused{Session: *s})
	e.deliver()
}

// Resume restarts the countdown of a paused session. Time spent paused is
// not counted.
func (e *Engine) Resume() {
	e.mu.Lock()
	s := e.current
	if s == nil || s.Status != StatusPaused {
		e.mu.Unlock()
		return
	}
	e.lastTick = e.clock.Now()
	s.Status = StatusRunning
	e.startDriverLocked()
	e.emitLocked(Resumed{Session: *s})
	e.deliver()
}

// Complete ends the current session as finished, records it and notifies
// the user. Recording happens in the background and never undoes the
// transition.
func (e *Engine) Complete() {
	e.mu.Lock()
	e.completeLocked()
	e.deliver()
}

// Abandon discards the current session without recording it.
func (e *Engine) Abandon() {
	e.mu.Lock()
	s := e.current
	if s == nil {
		e.mu.Unlock()
		return
	}
	e.stopDriverLocked()
	s.Status = StatusAbandoned
	s.EndedAt = e.clock.Now()
	e.emitLocked(Abandoned{Session: *s})
	e.current = nil
	e.deliver()
}

// AddInterruption counts an interruption against a running session.
func (e *Engine) AddInterruption() {
	e.mu.Lock()
	s := e.current
	if s == nil || s.Status != StatusRunning {
		e.mu.Unlock()
		return
	}
	s.Interruptions++
	e.emitLocked(Interruption{SessionID: s.ID, Count: s.Interruptions})
	e.deliver()
}

// Resync catches the countdown up with the wall clock after the host was
// in the background and ticks were delayed or dropped.
func (e *Engine) Resync() {
	e.mu.Lock()
	s := e.current
	if s == nil || s.Status != StatusRunning {
		e.mu.Unlock()
		return
	}
	whole := int(e.clock.Now().Sub(e.lastTick) / time.Second)
	if whole <= 0 {
		e.mu.Unlock()
		return
	}
	e.lastTick = e.lastTick.Add(time.Duration(whole) * time.Second)
	s.RemainingSeconds = max(0, s.RemainingSeconds-whole)
	e.emitLocked(Updated{Session: *s})
	if s.RemainingSeconds == 0 {
		e.completeLocked()
	}
	e.deliver()
}

// Current returns a snapshot of the live session, if there is one.
func (e *Engine) Current() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return Session{}, false
	}
	return *e.current, true
}

// Running reports whether a session is counting down. Hosts use it to warn
// before exiting.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && e.current.Status == StatusRunning
}

// On registers h for events of type t. Handlers run in registration order.
func (e *Engine) On(t EventType, h Handler) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSubID++
	if h != nil {
		e.subs[t] = append(e.subs[t], subscriber{id: e.nextSubID, handler: h})
	}
	return Subscription{id: e.nextSubID, event: t}
}

// Off removes a handler registered with On.
func (e *Engine) Off(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs[sub.event] = slices.DeleteFunc(e.subs[sub.event], func(s subscriber) bool {
		return s.id == sub.id
	})
}

// Wait blocks until completion side effects dispatched so far have finished.
func (e *Engine) Wait() {
	e.effects.Wait()
}

// Shutdown stops the driver, detaches from host signals and drops all
// subscriptions and any live session. It is safe to call more than once.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopDriverLocked()
	e.current = nil
	e.queue = nil
	e.subs = make(map[EventType][]subscriber)
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		func() {
			defer func() { _ = recover() }()
			unsubscribe()
		}()
	}
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	s := e.current
	if gen != e.generation || e.stop == nil || s == nil || s.Status != StatusRunning {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	e.drift += now.Sub(e.lastTick) - TickInterval
	e.lastTick = now

	if e.drift > DriftThreshold || e.drift < -DriftThreshold {
		// Only late ticks are folded in; an early tick's drift stays
		// pending until a later slip cancels it.
		if comp := int(math.Round(e.drift.Seconds())); comp > 0 {
			s.RemainingSeconds -= comp
			e.drift -= time.Duration(comp) * time.Second
		}
	}
	s.RemainingSeconds = max(0, s.RemainingSeconds-1)

	e.emitLocked(Updated{Session: *s})
	if s.RemainingSeconds == 0 {
		e.completeLocked()
	}
	e.deliver()
}

func (e *Engine) completeLocked() {
	s := e.current
	if s == nil {
		return
	}
	e.stopDriverLocked()
	s.Status = StatusCompleted
	s.Finished = true
	s.EndedAt = e.clock.Now()

	final := *s
	e.emitLocked(Completed{Session: final})
	e.dispatchEffects(final)
	e.current = nil
}

func (e *Engine) startDriverLocked() {
	e.stopDriverLocked()
	e.generation++
	gen := e.generation
	e.stop = e.driver.Start(TickInterval, func() { e.tick(gen) })
}

func (e *Engine) stopDriverLocked() {
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
}

func (e *Engine) dispatchEffects(s Session) {
	rec := recordOf(s)
	e.effects.Add(2)
	go func() {
		defer e.effects.Done()
		e.record(s.ID, rec)
	}()
	go func() {
		defer e.effects.Done()
		e.notify(s.Kind, s.PlannedMinutes)
	}()
}

func (e *Engine) record(id string, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recorder panicked", "session", id, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), e.recordTimeout)
	defer cancel()
	if err := e.recorder.RecordSession(ctx, rec); err != nil {
		e.logger.Error("failed to record focus session", "session", id, "kind", rec.Kind, "error", err)
	}
}

func (e *Engine) notify(kind Kind, minutes int) {
	defer func() { _ = recover() }()
	ctx, cancel := context.WithTimeout(context.Background(), e.recordTimeout)
	defer cancel()
	_ = e.notifier.Notify(ctx, kind, minutes)
}

func (e *Engine) emitLocked(ev Event) {
	e.queue = append(e.queue, ev)
}

// deliver hands queued events to subscribers in order. It must be called
// with e.mu held and returns with it released. Events queued while another
// call is delivering are handed over by that call.
func (e *Engine) deliver() {
	if e.delivering {
		e.mu.Unlock()
		return
	}
	e.delivering = true
	for len(e.queue) > 0 {
		ev := e.queue[0]
		e.queue = e.queue[1:]
		subs := slices.Clone(e.subs[ev.Type()])
		e.mu.Unlock()
		for _, sub := range subs {
			e.invoke(sub.handler, ev)
		}
		e.mu.Lock()
	}
	e.delivering = false
	e.mu.Unlock()
}

func (e *Engine) invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked", "event", ev.Type(), "panic", r)
		}
	}()
	h(ev)
}
