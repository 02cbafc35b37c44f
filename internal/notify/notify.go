// Package notify alerts the user when a focus session ends.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/timer"
)

// Message returns the title and body announcing the end of a session.
func Message(kind timer.Kind, minutes int) (title, body string) {
	switch kind {
	case timer.KindShortBreak:
		return "Break over!", "Short break finished. Time to focus."
	case timer.KindLongBreak:
		return "Break over!", "Long break finished. Ready for the next cycle?"
	default:
		return "Pomodoro complete!", fmt.Sprintf("Great work! You finished a %d minute focus session.", minutes)
	}
}

// Terminal prints the announcement and optionally rings the bell.
type Terminal struct {
	UI    *output.UI
	Sound bool
}

// Notify implements timer.Notifier.
func (t *Terminal) Notify(_ context.Context, kind timer.Kind, minutes int) error {
	if t.Sound {
		fmt.Fprint(t.UI.Out, "\a")
	}
	title, body := Message(kind, minutes)
	t.UI.Success("%s %s", output.Cyan(title), body)
	return nil
}

// Multi fans a notification out to several notifiers. Every notifier runs;
// their errors are joined.
type Multi []timer.Notifier

// Notify implements timer.Notifier.
func (m Multi) Notify(ctx context.Context, kind timer.Kind, minutes int) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, kind, minutes); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
