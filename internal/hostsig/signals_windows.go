//go:build windows

package hostsig

import "os"

// Windows consoles have no job control, so there is no visibility signal.
func visibilitySignals() []os.Signal { return nil }

func unloadSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
