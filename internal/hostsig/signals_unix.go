//go:build !windows

package hostsig

import (
	"os"
	"syscall"
)

func visibilitySignals() []os.Signal {
	return []os.Signal{syscall.SIGCONT}
}

func unloadSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
