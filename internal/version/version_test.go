package version

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	got := getVersion()
	if got == "" {
		t.Fatal("getVersion() returned empty string")
	}
	if got != strings.TrimSpace(got) {
		t.Errorf("getVersion() = %q, contains surrounding whitespace", got)
	}
	if strings.Count(got, ".") < 2 {
		t.Errorf("getVersion() = %q, want semver", got)
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "0.1.0", GitCommit: "abc1234", BuildDate: "2026-01-10T15:04:05Z", GoVersion: "go1.25.1"}
	want := "Version:    0.1.0\nGit Commit: abc1234\nBuild Date: 2026-01-10T15:04:05Z\nGo:         go1.25.1"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInfo_Short(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"with commit", Info{Version: "0.1.0", GitCommit: "abc1234"}, "0.1.0+abc1234"},
		{"dirty commit", Info{Version: "0.1.0", GitCommit: "abc1234-dirty"}, "0.1.0+abc1234-dirty"},
		{"unknown commit", Info{Version: "0.1.0", GitCommit: "unknown"}, "0.1.0"},
		{"empty commit", Info{Version: "0.1.0"}, "0.1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGet_PopulatesFields(t *testing.T) {
	info := Get()
	if info.Version == "" || info.GitCommit == "" || info.BuildDate == "" || info.GoVersion == "" {
		t.Errorf("Get() left a field empty: %+v", info)
	}
}
