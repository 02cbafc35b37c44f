package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/joescharf/pomo/internal/timer"
)

// Desktop raises a native desktop notification through notify-send on Linux
// or osascript on macOS. Hosts without either command get no notification.
type Desktop struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewDesktop returns a notifier for the current platform.
func NewDesktop() *Desktop {
	return &Desktop{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Notify implements timer.Notifier.
func (d *Desktop) Notify(ctx context.Context, kind timer.Kind, minutes int) error {
	name, args := d.command(Message(kind, minutes))
	if name == "" {
		return nil
	}
	if _, err := d.lookPath(name); err != nil {
		return nil
	}
	out, err := d.run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d *Desktop) command(title, body string) (string, []string) {
	switch d.goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "notify-send", []string{"--app-name=pomo", title, body}
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(body), escapeAppleScript(title))
		return "osascript", []string{"-e", script}
	default:
		return "", nil
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
