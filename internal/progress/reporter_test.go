package progress

import (
	"bytes"
	"testing"
)

func TestNewReporterInCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("Extracting scenes").(*CIReporter); !ok {
		t.Error("expected a CIReporter when CI is set")
	}
}

func TestNewReporterInteractive(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	if _, ok := NewReporter("Extracting scenes").(*TerminalReporter); !ok {
		t.Error("expected a TerminalReporter outside CI")
	}
}

func TestCIReporterOutput(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{out: &buf, description: "Extracting scenes"}
	r.Start(2)
	r.Update(1, "a.png")
	r.Update(2, "b.png")
	r.Finish()

	want := "Extracting scenes: 2 files\n[1/2] a.png\n[2/2] b.png\nExtracting scenes: done\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
