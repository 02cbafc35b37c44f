package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pomo/internal/daemon"
	"github.com/joescharf/pomo/internal/hostsig"
	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/notify"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/recorder"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
)

var (
	timerKind    string
	timerTask    string
	timerMinutes int
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Run a focus session",
	Long: `Run an interactive countdown for a work session or break.

Type a key and press enter:
  p  pause        r  resume
  i  interruption c  complete now
  a  abandon      q  quit

Completed sessions are saved locally, or sent to server.url when set.`,
	Aliases: []string{"start"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerRun(context.Background(), os.Stdin)
	},
}

func init() {
	timerCmd.Flags().StringVarP(&timerKind, "kind", "k", string(timer.KindWork), "Session kind: work, short_break, long_break")
	timerCmd.Flags().StringVarP(&timerTask, "task", "t", "", "Task ID (or prefix) to focus on")
	timerCmd.Flags().IntVarP(&timerMinutes, "minutes", "m", 0, "Override the configured duration")
	rootCmd.AddCommand(timerCmd)
}

// cycleConfig controls what happens after a session ends.
type cycleConfig struct {
	LongBreakEvery  int
	AutoStartBreaks bool
	AutoStartWork   bool
}

func timerConfig() (timer.Settings, cycleConfig) {
	settings := timer.Settings{
		WorkMinutes:       viper.GetInt("timer.work_minutes"),
		ShortBreakMinutes: viper.GetInt("timer.short_break_minutes"),
		LongBreakMinutes:  viper.GetInt("timer.long_break_minutes"),
	}
	cycle := cycleConfig{
		LongBreakEvery:  viper.GetInt("timer.long_break_every"),
		AutoStartBreaks: viper.GetBool("timer.auto_start_breaks"),
		AutoStartWork:   viper.GetBool("timer.auto_start_work"),
	}
	return settings, cycle
}

// sessionRecorder picks where finished sessions go.
func sessionRecorder(s store.Store) timer.Recorder {
	if url := viper.GetString("server.url"); url != "" {
		slog.Debug("recording sessions remotely", "url", url)
		return recorder.NewHTTPRecorder(url, nil)
	}
	return recorder.NewStoreRecorder(s)
}

func sessionNotifier() timer.Notifier {
	n := notify.Multi{&notify.Terminal{UI: ui, Sound: viper.GetBool("notifications.sound")}}
	if viper.GetBool("notifications.desktop") {
		n = append(n, notify.NewDesktop())
	}
	return n
}

func timerRun(ctx context.Context, in io.Reader) error {
	kind := timer.Kind(timerKind)
	if !kind.Valid() {
		return fmt.Errorf("invalid kind: %q (use: work, short_break, long_break)", timerKind)
	}
	if timerMinutes < 0 {
		return fmt.Errorf("minutes must be positive")
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	taskID := timerTask
	if taskID != "" && viper.GetString("server.url") == "" {
		t, err := findTask(ctx, s, taskID)
		if err != nil {
			return err
		}
		if t.Completed {
			ui.Warning("Task %q is already completed", t.Title)
		}
		taskID = t.ID
		ui.Info("Focusing on %s", output.Cyan(t.Title))
	}

	settings, cycle := timerConfig()
	if dryRun {
		minutes := timerMinutes
		if minutes == 0 {
			minutes, _ = settings.Minutes(kind)
		}
		ui.DryRunMsg("Would start a %d minute %s session", minutes, kindLabel(models.SessionKind(kind)))
		return nil
	}

	stateDir := viper.GetString("state_dir")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	lock := daemon.NewPIDFile(filepath.Join(stateDir, "timer.pid"))
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, daemon.ErrRunning) {
			return fmt.Errorf("another timer is active: %w", err)
		}
		return fmt.Errorf("lock timer: %w", err)
	}
	defer func() { _ = lock.Release() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := hostsig.New(func() {
		fmt.Fprintln(ui.Out)
		ui.Warning("%s", hostsig.UnloadWarning)
		ui.Info("Press Ctrl+C again to quit")
	}, cancel)

	engine, err := timer.New(settings,
		timer.WithDriver(timer.TickerDriver{}),
		timer.WithRecorder(sessionRecorder(s)),
		timer.WithNotifier(sessionNotifier()),
		timer.WithSignals(watcher),
		timer.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	defer func() {
		engine.Wait()
		engine.Shutdown()
	}()

	host := newFocusHost(engine, cycle, taskID)
	if err := host.start(kind, timerMinutes); err != nil {
		return err
	}
	ui.VerboseLog("keys: p pause, r resume, i interruption, c complete, a abandon, q quit")

	lines := readLines(in)
	for {
		select {
		case <-ctx.Done():
			engine.Abandon()
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed: let the countdown finish on its own
				lines = nil
				continue
			}
			if !host.handleKey(line) {
				return nil
			}
		case ended := <-host.ended:
			next, ok := host.next(ended)
			if !ok {
				host.summary()
				return nil
			}
			if err := host.start(next, 0); err != nil {
				return err
			}
		}
	}
}

func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

// focusHost renders engine events and drives the work/break cycle.
type focusHost struct {
	engine *timer.Engine
	cycle  cycleConfig
	taskID string

	completedWork int
	ended         chan timer.Session
}

func newFocusHost(e *timer.Engine, cycle cycleConfig, taskID string) *focusHost {
	h := &focusHost{
		engine: e,
		cycle:  cycle,
		taskID: taskID,
		ended:  make(chan timer.Session, 4),
	}

	e.On(timer.EventStarted, func(ev timer.Event) {
		s := ev.(timer.Started).Session
		ui.Info("Started %s (%d min)", kindLabel(models.SessionKind(s.Kind)), s.PlannedMinutes)
	})
	e.On(timer.EventUpdated, func(ev timer.Event) {
		h.render(ev.(timer.Updated).Session)
	})
	e.On(timer.EventPaused, func(timer.Event) {
		fmt.Fprintln(ui.Out)
		ui.Info("Paused. Press r to resume.")
	})
	e.On(timer.EventResumed, func(timer.Event) {
		ui.Info("Resumed")
	})
	e.On(timer.EventInterruption, func(ev timer.Event) {
		fmt.Fprintln(ui.Out)
		ui.Warning("Interruption recorded (%d this session)", ev.(timer.Interruption).Count)
	})
	e.On(timer.EventCompleted, func(ev timer.Event) {
		s := ev.(timer.Completed).Session
		fmt.Fprintln(ui.Out)
		if s.Kind == timer.KindWork {
			h.completedWork++
		}
		h.push(s)
	})
	e.On(timer.EventAbandoned, func(ev timer.Event) {
		fmt.Fprintln(ui.Out)
		ui.Warning("Session abandoned")
		h.push(ev.(timer.Abandoned).Session)
	})
	return h
}

func (h *focusHost) push(s timer.Session) {
	select {
	case h.ended <- s:
	default:
	}
}

func (h *focusHost) start(kind timer.Kind, minutes int) error {
	opts := timer.StartOptions{Kind: kind, DurationMinutes: minutes}
	if kind == timer.KindWork {
		opts.TaskID = h.taskID
	}
	_, err := h.engine.Start(opts)
	return err
}

// handleKey applies one line of keyboard input. It returns false when the
// host should exit.
func (h *focusHost) handleKey(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
	case "p", "pause":
		h.engine.Pause()
	case "r", "resume":
		h.engine.Resume()
	case "i", "interrupt":
		h.engine.AddInterruption()
	case "c", "complete":
		h.engine.Complete()
	case "a", "abandon":
		h.engine.Abandon()
	case "q", "quit":
		h.engine.Abandon()
		return false
	default:
		ui.Warning("Unknown key %q (p, r, i, c, a, q)", line)
	}
	return true
}

// next decides whether another session follows s and of which kind.
func (h *focusHost) next(s timer.Session) (timer.Kind, bool) {
	if s.Status != timer.StatusCompleted {
		return "", false
	}
	kind := timer.NextKind(s.Kind, h.completedWork, h.cycle.LongBreakEvery)
	if kind.IsBreak() && !h.cycle.AutoStartBreaks {
		ui.Info("Up next: %s. Run 'pomo timer --kind %s' when ready.", kindLabel(models.SessionKind(kind)), kind)
		return "", false
	}
	if kind == timer.KindWork && !h.cycle.AutoStartWork {
		return "", false
	}
	return kind, true
}

func (h *focusHost) render(s timer.Session) {
	planned := s.PlannedSeconds()
	bar := output.ProgressBar(planned-s.RemainingSeconds, planned, 30)
	fmt.Fprintf(ui.Out, "\r%-12s %s %s", kindLabel(models.SessionKind(s.Kind)), bar, output.FormatClock(s.RemainingSeconds))
}

func (h *focusHost) summary() {
	if h.completedWork > 0 {
		ui.Success("%d pomodoro(s) completed", h.completedWork)
	}
}
