// Package exttesting runs external test scripts from Go tests.
//
//	func TestContainerizerBasic(t *testing.T) {
//		exttesting.Run(t, "containerizer", "basic")
//	}
package exttesting

import (
	"testing"

	"github.com/mesos-tools/exttest/internal/config"
	"github.com/mesos-tools/exttest/internal/external"
)

// Run executes the external test <suite>/<test> with settings from the
// exttest configuration and reports failures on t.
func Run(t testing.TB, suite, test string) bool {
	t.Helper()

	inv := external.NewInvocation(suite, test)

	settings, err := external.SettingsFromConfig(config.Load())
	if err != nil {
		t.Errorf("%s", external.FailureMessage(inv, external.Outcome{}, err))
		return false
	}

	runner, err := external.New(settings)
	if err != nil {
		t.Errorf("%s", external.FailureMessage(inv, external.Outcome{}, err))
		return false
	}

	return runner.Report(t.Context(), t, suite, test)
}
