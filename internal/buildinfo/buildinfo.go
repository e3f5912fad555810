// Package buildinfo stores build-time metadata shared across packages.
package buildinfo

// Set from cmd/exttest, which receives them via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// IsRelease reports whether the binary was built from a tagged release.
func IsRelease() bool {
	return Version != "" && Version != "dev"
}
