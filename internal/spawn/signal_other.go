//go:build !unix

package spawn

import (
	"strconv"
	"syscall"
)

// SignalName returns the short symbolic name of sig. Platforms without
// POSIX signals only have the number.
func SignalName(sig syscall.Signal) string {
	return "SIG" + strconv.Itoa(int(sig))
}
