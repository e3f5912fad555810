package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	clierrors "github.com/mesos-tools/exttest/internal/errors"
	"github.com/mesos-tools/exttest/internal/external"
	"github.com/mesos-tools/exttest/internal/observability"
	"github.com/mesos-tools/exttest/internal/output"
	"github.com/mesos-tools/exttest/internal/watch"
)

// files returns the scripts the selection runs, plus its manifest.
func (s *selection) files() []string {
	files := make([]string, 0, len(s.entries)+1)

	for _, e := range s.entries {
		if s.skipDisabled && strings.HasPrefix(e.Test, external.DisabledPrefix) {
			continue
		}

		files = append(files, external.ScriptPath(s.settings.SourceDir, e.Invocation()))
	}

	if s.manifestPath != "" {
		files = append(files, s.manifestPath)
	}

	return files
}

// isManifest reports whether path is the selection's manifest.
func (s *selection) isManifest(path string) bool {
	if s.manifestPath == "" {
		return false
	}

	abs, err := filepath.Abs(s.manifestPath)

	return err == nil && abs == path
}

// reload reads the manifest again and moves w onto the new selection's
// files. On error the selection and w are left as they were.
func (s *selection) reload(w *watch.Watcher) error {
	m, err := loadManifest(s.manifestPath)
	if err != nil {
		return err
	}

	prev := s.entries
	s.entries = m.Entries()

	if err := w.Set(s.files()); err != nil {
		s.entries = prev
		return clierrors.Wrap(clierrors.ExitGeneral, "Cannot watch the new selection", err)
	}

	return nil
}

// watch runs the selection again on every change until interrupted and
// returns the error of the last run.
func (s *selection) watch(ctx context.Context, out *output.Writer, lastErr error) error {
	logger := observability.FromContext(ctx)

	w, err := watch.New(s.files(), logger)
	if err != nil {
		return clierrors.Wrap(clierrors.ExitGeneral, "Cannot watch the selected tests", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out.Println()
	out.Info("Watching %d file(s) for changes. Press Ctrl-C to stop.", w.Files())

	err = w.Run(ctx, func(ctx context.Context, path string) {
		out.Println()
		out.Muted("%s changed", path)

		if s.isManifest(path) {
			if err := s.reload(w); err != nil {
				out.Failure("%v", err)
				out.Info("Keeping the previous list of tests")

				return
			}

			out.Muted("Watching %d file(s)", w.Files())
		}

		lastErr = s.run(ctx, out)

		var cliErr *clierrors.CLIError

		switch {
		case lastErr == nil:
		case clierrors.As(lastErr, &cliErr):
			out.Failure("%s", cliErr.Message)
		default:
			out.Failure("%v", lastErr)
		}
	})
	if err != nil {
		return err
	}

	return lastErr
}
