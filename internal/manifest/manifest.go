// Package manifest loads the list of external tests to run.
//
// A manifest names suites and the tests inside them:
//
//	suites:
//	  - name: containerizer
//	    tests: [basic, DISABLED_slow]
//
// The same shape is accepted as TOML:
//
//	[[suites]]
//	name = "containerizer"
//	tests = ["basic", "DISABLED_slow"]
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mesos-tools/exttest/internal/external"
)

// Format is a manifest encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrEmpty is returned for a manifest without any tests.
var ErrEmpty = errors.New("manifest lists no tests")

// Manifest is a parsed manifest file.
type Manifest struct {
	Suites []Suite `yaml:"suites" toml:"suites"`
}

// Suite groups the tests of one external test suite.
type Suite struct {
	Name  string   `yaml:"name" toml:"name"`
	Tests []string `yaml:"tests" toml:"tests"`
}

// Entry is one test to run, with its name exactly as written.
type Entry struct {
	Suite string
	Test  string
}

// Invocation returns the normalized invocation for e.
func (e Entry) Invocation() external.Invocation {
	return external.NewInvocation(e.Suite, e.Test)
}

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: manifest path is supplied by the user
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(data, format)
}

// Parse decodes and validates manifest data.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml manifest: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()

		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parse toml manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks names and rejects tests listed twice. Two names that differ
// only by the disabled marker refer to the same script and count as
// duplicates.
func (m *Manifest) Validate() error {
	seen := make(map[external.Invocation]string)
	total := 0

	for i, suite := range m.Suites {
		if err := validateName(suite.Name); err != nil {
			return fmt.Errorf("suite %d: %w", i+1, err)
		}

		for _, test := range suite.Tests {
			if err := validateName(test); err != nil {
				return fmt.Errorf("suite %s: %w", suite.Name, err)
			}

			inv := external.NewInvocation(suite.Name, test)
			if inv.Test == "" {
				return fmt.Errorf("suite %s: test %q is only the disabled marker", suite.Name, test)
			}

			if prev, ok := seen[inv]; ok {
				return fmt.Errorf("suite %s: test %q duplicates %q", suite.Name, test, prev)
			}

			seen[inv] = test
			total++
		}
	}

	if total == 0 {
		return ErrEmpty
	}

	return nil
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("name cannot be empty")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q must not contain a path separator", name)
	case name == "." || name == "..":
		return fmt.Errorf("name %q is not allowed", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("name %q contains a null byte", name)
	}

	return nil
}

// Entries flattens the manifest in file order.
func (m *Manifest) Entries() []Entry {
	var entries []Entry

	for _, suite := range m.Suites {
		for _, test := range suite.Tests {
			entries = append(entries, Entry{Suite: suite.Name, Test: test})
		}
	}

	return entries
}
