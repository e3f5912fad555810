package history

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrNotFound is returned for a run id with no recorded run.
var ErrNotFound = errors.New("run not found")

// Run is a recorded run found on disk.
type Run struct {
	Meta
	Path string `json:"path"`
}

// List returns the recorded runs under root, newest first. A missing root
// has no runs.
func List(root string) ([]Run, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]Run, 0, len(entries))

	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}

		dir := filepath.Join(root, ent.Name())

		meta, err := readMeta(dir)
		if err != nil {
			continue
		}

		runs = append(runs, Run{Meta: meta, Path: dir})
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// Get returns the meta of one run.
func Get(root, runID string) (Run, error) {
	if err := validateRunID(runID); err != nil {
		return Run{}, err
	}

	dir := filepath.Join(root, runID)

	meta, err := readMeta(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}

	if err != nil {
		return Run{}, err
	}

	return Run{Meta: meta, Path: dir}, nil
}

func readMeta(dir string) (Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return Meta{}, err
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("parse run meta: %w", err)
	}

	return meta, nil
}

// ReadResults returns the results recorded for a run, in the order the
// tests ran. A run cut short yields the results written before it stopped.
func ReadResults(root, runID string) (results []Result, err error) {
	if err := validateRunID(runID); err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(root, runID, resultsFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}

	if err != nil {
		return nil, fmt.Errorf("open run results: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	gz, err := gzip.NewReader(file)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read run results: %w", err)
	}

	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var r Result
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}

		results = append(results, r)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("scan run results: %w", err)
	}

	return results, nil
}

// PruneOlderThan removes runs that finished (or, if unfinished, started)
// before cutoff and returns how many were removed.
func PruneOlderThan(root string, cutoff time.Time) (int, error) {
	runs, err := List(root)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, run := range runs {
		ref := run.StartedAt
		if run.FinishedAt != nil {
			ref = *run.FinishedAt
		}

		if !ref.Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(run.Path); err != nil {
			return removed, fmt.Errorf("prune run %q: %w", run.RunID, err)
		}

		removed++
	}

	return removed, nil
}
