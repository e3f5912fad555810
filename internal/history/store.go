// Package history records the results of external test runs.
//
// Every run is a directory <root>/<run-id> holding meta.json and a
// gzip-compressed JSON Lines file with one Result per test. Results are
// flushed as they are appended, so a run that was interrupted can still be
// read up to its last finished test.
package history

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRetention = 30 * 24 * time.Hour
	resultsFileName  = "results.jsonl.gz"
	metaFileName     = "meta.json"
)

// Result values.
const (
	Passed       = "passed"
	Failed       = "failed"
	LaunchFailed = "launch_failed"
	Skipped      = "skipped"
)

// Result is the outcome of one external test in a run.
type Result struct {
	Suite      string `json:"suite"`
	Test       string `json:"test"`
	Result     string `json:"result"`
	Status     *int   `json:"status,omitempty"`
	Signal     string `json:"signal,omitempty"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Meta describes a recorded run.
type Meta struct {
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	SourceDir  string     `json:"source_dir"`
	Manifest   string     `json:"manifest,omitempty"`
	Passed     int        `json:"passed"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
}

// Store appends the results of one run.
type Store struct {
	mu sync.Mutex

	meta Meta
	dir  string

	file *os.File
	gz   *gzip.Writer
	bw   *bufio.Writer

	closed bool
}

// Start creates the directory for a new run under root. meta.RunID is
// required; StartedAt defaults to now.
func Start(root string, meta Meta) (*Store, error) {
	if err := validateRunID(meta.RunID); err != nil {
		return nil, err
	}

	if meta.StartedAt.IsZero() {
		meta.StartedAt = time.Now().UTC()
	}

	dir := filepath.Join(root, meta.RunID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, resultsFileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open run results: %w", err)
	}

	gz := gzip.NewWriter(f)

	s := &Store{
		meta: meta,
		dir:  dir,
		file: f,
		gz:   gz,
		bw:   bufio.NewWriter(gz),
	}

	if err := s.writeMeta(); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// RunID returns the run's id.
func (s *Store) RunID() string {
	return s.meta.RunID
}

// Append records one result and updates the run's counts.
func (s *Store) Append(r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("run history is closed")
	}

	line, err := json.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	line = append(line, '\n')
	if _, err := s.bw.Write(line); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if err := s.bw.Flush(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}

	if err := s.gz.Flush(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}

	switch r.Result {
	case Passed:
		s.meta.Passed++
	case Skipped:
		s.meta.Skipped++
	default:
		s.meta.Failed++
	}

	return nil
}

// Close marks the run finished and closes its files.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	now := time.Now().UTC()
	s.meta.FinishedAt = &now

	var errs []error

	if err := s.writeMeta(); err != nil {
		errs = append(errs, err)
	}

	if err := s.bw.Flush(); err != nil {
		errs = append(errs, err)
	}

	if err := s.gz.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := s.file.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (s *Store) writeMeta() error {
	data, err := json.MarshalIndent(&s.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run meta: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, metaFileName), data, 0o600); err != nil {
		return fmt.Errorf("write run meta: %w", err)
	}

	return nil
}

// DefaultRetention is how long runs are kept by 'exttest history prune'.
func DefaultRetention() time.Duration {
	return defaultRetention
}

func validateRunID(id string) error {
	if id == "" {
		return errors.New("run id is required")
	}

	if id != filepath.Base(id) || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid run id %q", id)
	}

	return nil
}

// NewRunID returns an id that sorts by start time.
func NewRunID(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}
