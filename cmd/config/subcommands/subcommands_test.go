package subcommands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/internal/testutil"
)

func execute(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestInitThenValidate(t *testing.T) {
	env := testutil.NewTestEnv(t)
	t.Cleanup(func() { initForce, initPath = false, "" })

	out, err := execute(t, InitCmd)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, env.ConfigPath()) {
		t.Errorf("init output = %q, want the path %s", out, env.ConfigPath())
	}

	if _, err := execute(t, InitCmd); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("second init error = %v, want a hint about --force", err)
	}
	if _, err := execute(t, InitCmd, "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}

	out, err = execute(t, ValidateCmd, env.ConfigPath())
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Errorf("validate output = %q", out)
	}
}

func TestValidate_Invalid(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := env.CreateTestFile("bad.yaml", "log_level: loud\nserver:\n  http_port: -1\n")

	out, err := execute(t, ValidateCmd, path)
	if err == nil {
		t.Fatal("invalid config passed validation")
	}
	for _, want := range []string{"log_level", "server.http_port"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate_NoFile(t *testing.T) {
	testutil.NewTestEnv(t)

	out, err := execute(t, ValidateCmd)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "No configuration file found") {
		t.Errorf("output = %q", out)
	}
}

func TestShow(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteConfig("server:\n  http_port: 8123\n")
	t.Cleanup(func() { showRaw = false })

	out, err := execute(t, ShowCmd)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"http_port: 8123", "default_model: gpt-4o", "min_cell_width:"} {
		if !strings.Contains(out, want) {
			t.Errorf("effective config missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, ShowCmd, "--raw")
	if err != nil {
		t.Fatalf("show --raw failed: %v", err)
	}
	if strings.Contains(out, "default_model") || !strings.Contains(out, "http_port: 8123") {
		t.Errorf("raw config = %q", out)
	}
}
