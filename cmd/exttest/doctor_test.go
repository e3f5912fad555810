package main

import (
	"testing"

	"github.com/mesos-tools/exttest/internal/doctor"
	"github.com/mesos-tools/exttest/internal/testutil"
)

func renderDoctorOutput(results []doctor.Result) string {
	out, buf := newTestWriter()
	renderDoctor(out, results)

	return buf.String()
}

func TestDoctorOutput_AllPass_Golden(t *testing.T) {
	results := []doctor.Result{
		{Name: "Source Directory", Status: doctor.StatusPass, Message: "/src/mesos"},
		{Name: "Build Directory", Status: doctor.StatusPass, Message: "/src/mesos/build"},
		{Name: "Workspace Root", Status: doctor.StatusPass, Message: "/tmp (writable)"},
		{Name: "Shell", Status: doctor.StatusPass, Message: "/bin/sh"},
	}

	testutil.AssertGolden(t, renderDoctorOutput(results), "doctor_all_pass.golden")
}

func TestDoctorOutput_Mixed_Golden(t *testing.T) {
	results := []doctor.Result{
		{
			Name:    "Source Directory",
			Status:  doctor.StatusFail,
			Message: "/src/mesos",
			Detail:  "No external tests at /src/mesos/src/tests/external; is this a Mesos source tree?",
		},
		{
			Name:    "Build Directory",
			Status:  doctor.StatusWarn,
			Message: "/src/mesos/build",
			Detail:  "/src/mesos/build/src does not exist yet; MESOS_LAUNCHER_DIR will point at a missing directory",
		},
		{Name: "Workspace Root", Status: doctor.StatusPass, Message: "/tmp (writable)"},
		{Name: "Shell", Status: doctor.StatusPass, Message: "/bin/sh"},
		{
			Name:    "Manifest Scripts",
			Status:  doctor.StatusFail,
			Message: "1 of 3 script(s) not executable",
			Detail:  "Run chmod +x on: containerizer/basic",
		},
	}

	testutil.AssertGolden(t, renderDoctorOutput(results), "doctor_mixed.golden")
}

func TestDoctorOutput_AllFail_Golden(t *testing.T) {
	results := []doctor.Result{
		{
			Name:    "Source Directory",
			Status:  doctor.StatusFail,
			Message: "Not configured",
			Detail:  "Set it with --source-dir or 'exttest config set source_dir <dir>'",
		},
		{
			Name:    "Build Directory",
			Status:  doctor.StatusFail,
			Message: "Not configured",
			Detail:  "Set it with --build-dir or 'exttest config set build_dir <dir>'",
		},
		{
			Name:    "Workspace Root",
			Status:  doctor.StatusFail,
			Message: "/nonexistent",
			Detail:  "stat /nonexistent: no such file or directory",
		},
		{Name: "Shell", Status: doctor.StatusFail, Message: "Not found", Detail: "External test scripts need /bin/sh"},
	}

	testutil.AssertGolden(t, renderDoctorOutput(results), "doctor_all_fail.golden")
}
