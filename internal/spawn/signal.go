package spawn

import (
	"syscall"
	"unicode"
	"unicode/utf8"
)

// SignalDescription returns the human-readable description of sig as the
// platform's C library prints it, e.g. "Killed" for SIGKILL and
// "Segmentation fault" for SIGSEGV.
func SignalDescription(sig syscall.Signal) string {
	desc := sig.String()

	r, size := utf8.DecodeRuneInString(desc)
	if r == utf8.RuneError {
		return desc
	}

	return string(unicode.ToUpper(r)) + desc[size:]
}
