//go:build unix

package spawn

import (
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// SignalName returns the short symbolic name of sig, e.g. "SIGKILL".
func SignalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}

	return "SIG" + strconv.Itoa(int(sig))
}
