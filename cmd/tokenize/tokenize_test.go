package tokenize

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/internal/testutil"
)

func newTestCommand(stdin string, args ...string) (*cobra.Command, *bytes.Buffer) {
	c := &cobra.Command{
		Use:     "tokenize",
		Args:    cobra.ArbitraryArgs,
		PreRunE: validateTokenize,
		RunE:    runTokenize,
	}
	registerFlags(c)

	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetIn(strings.NewReader(stdin))
	c.SetArgs(args)
	return c, &out
}

func TestTokenizeCmd_Formats(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "ids",
			args: []string{"--model", "gpt-4", "--format", "ids", "Hello, world!"},
			want: []string{"9906,11,1917,0\n"},
		},
		{
			name: "text table",
			args: []string{"--model", "gpt-4", "Hello, world!"},
			want: []string{"model=gpt-4", "encoding=cl100k_base", "tokens=4", "chars=13", "1|11|,"},
		},
		{
			name: "raw round trips",
			args: []string{"--format", "raw", "naïve café"},
			want: []string{"naïve café"},
		},
		{
			name: "max tokens keeps counts",
			args: []string{"--model", "gpt-4", "--format", "json", "--max-tokens", "1", "Hello, world!"},
			want: []string{`"tokenCount": 4`, `"text": "Hello"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.NewTestEnv(t)
			cmd, out := newTestCommand("", tt.args...)

			if err := cmd.Execute(); err != nil {
				t.Fatalf("tokenize failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestTokenizeCmd_Stdin(t *testing.T) {
	testutil.NewTestEnv(t)
	cmd, out := newTestCommand("Hello, world!", "--model", "gpt-4", "--format", "ids")

	if err := cmd.Execute(); err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if out.String() != "9906,11,1917,0\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestTokenizeCmd_FileToOutput(t *testing.T) {
	env := testutil.NewTestEnv(t)
	in := env.CreateTestFile("prompt.txt", "Hello, world!")
	dst := filepath.Join(t.TempDir(), "tokens.yaml")

	cmd, out := newTestCommand("", "--model", "gpt-4", "--file", in, "--format", "yaml", "--output", dst)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("wrote to stdout with --output: %q", out.String())
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	for _, want := range []string{"source: " + in, "token_count: 4"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("yaml missing %q:\n%s", want, data)
		}
	}
}

func TestTokenizeCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown model", []string{"--model", "nope", "x"}, "available models"},
		{"unknown format", []string{"--format", "csv", "x"}, "unknown format"},
		{"args with file", []string{"--file", "a.txt", "x"}, "cannot be combined"},
		{"watch without file", []string{"--watch", "x"}, "--watch requires --file"},
		{"negative max tokens", []string{"--max-tokens", "-1", "x"}, "non-negative"},
		{"missing file", []string{"--file", "/does/not/exist.txt"}, "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.NewTestEnv(t)
			cmd, _ := newTestCommand("", tt.args...)

			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
