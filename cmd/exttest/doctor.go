package main

import (
	"github.com/spf13/cobra"

	"github.com/mesos-tools/exttest/internal/doctor"
	"github.com/mesos-tools/exttest/internal/output"
)

func newDoctorCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the test environment",
		Long: `Run diagnostic checks to find problems before running external tests:
the source tree and its src/tests/external directory, the build tree, whether
workspaces can be created under the tmp root, and the /bin/sh interpreter.
With --manifest, also check that every listed script exists and is executable.`,
		Example: `  exttest doctor
  exttest doctor --source-dir ~/src/mesos --build-dir ~/src/mesos/build
  exttest doctor --manifest tests.yaml --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			runner := doctor.New(settings)

			if manifestPath != "" {
				m, loadErr := loadManifest(manifestPath)
				if loadErr != nil {
					return loadErr
				}

				runner.AddManifestCheck(settings, m)
			}

			results := runner.Run(cmd.Context())

			if out.JSON {
				return out.PrintJSON(results)
			}

			renderDoctor(out, results)

			return nil
		},
	}

	addManifestFlag(cmd, &manifestPath)

	return cmd
}

func renderDoctor(out *output.Writer, results []doctor.Result) {
	out.Println("exttest doctor")
	out.Println("==============")
	out.Println()

	doctor.RenderResults(results, out.Print, out.Success, out.Warning, out.Failure, out.Muted)

	passed, failed, warnings := doctor.Summary(results)

	out.Println()
	out.Print("%d passed", passed)

	if failed > 0 {
		out.Print(", %d failed", failed)
	}

	if warnings > 0 {
		out.Print(", %d warning(s)", warnings)
	}

	out.Println()
}
