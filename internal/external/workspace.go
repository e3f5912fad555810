package external

import (
	"os"
	"path/filepath"
)

// WorkspacePattern returns the os.MkdirTemp pattern for inv's workspace.
func WorkspacePattern(inv Invocation) string {
	return inv.Suite + "_" + inv.Test + "_*"
}

// CreateWorkspace creates a new, uniquely named directory under root for
// inv: <root>/<suite>_<test>_<random>. The directory is never removed by
// the runner.
//
// Names containing a path separator are not rejected up front; they fail
// here like any other unusable path.
func CreateWorkspace(root string, inv Invocation) (string, error) {
	dir, err := os.MkdirTemp(root, WorkspacePattern(inv))
	if err != nil {
		return "", &LaunchError{
			Op:   OpWorkspace,
			Path: filepath.Join(root, inv.Suite+"_"+inv.Test+"_XXXXXX"),
			Err:  err,
		}
	}

	return dir, nil
}
