package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesos-tools/exttest/internal/external"
	"github.com/mesos-tools/exttest/internal/output"
)

// ListedTest is one manifest entry in JSON output.
type ListedTest struct {
	Suite    string `json:"suite"`
	Test     string `json:"test"`
	Disabled bool   `json:"disabled"`
	Script   string `json:"script"`
	Exists   bool   `json:"exists"`
}

func newListCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the external tests in a manifest",
		Long: `List every test in a manifest with the script it resolves to under the
configured source tree. Scripts that do not exist are flagged.`,
		Example: `  exttest list --manifest tests.yaml
  exttest list -m tests.toml --source-dir ~/src/mesos --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if manifestPath == "" {
				return errManifestRequired(cmd)
			}

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			m, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}

			listed := make([]ListedTest, 0, len(m.Entries()))

			for _, e := range m.Entries() {
				inv := e.Invocation()
				script := external.ScriptPath(settings.SourceDir, inv)
				_, statErr := os.Stat(script)

				listed = append(listed, ListedTest{
					Suite:    inv.Suite,
					Test:     inv.Test,
					Disabled: strings.HasPrefix(e.Test, external.DisabledPrefix),
					Script:   script,
					Exists:   statErr == nil,
				})
			}

			if out.JSON {
				return out.PrintJSON(listed)
			}

			rows := make([][]string, 0, len(listed))

			for _, l := range listed {
				state := output.CheckMark + " ready"

				switch {
				case !l.Exists:
					state = output.XMark + " missing"
				case l.Disabled:
					state = output.WarningMark + " disabled"
				}

				rows = append(rows, []string{l.Suite, l.Test, state, l.Script})
			}

			out.Table([]string{"SUITE", "TEST", "STATE", "SCRIPT"}, rows, 2)

			return nil
		},
	}

	addManifestFlag(cmd, &manifestPath)

	return cmd
}
