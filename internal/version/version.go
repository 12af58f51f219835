// Package version reports the build's version, commit and toolchain.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionFile string

// Set via -ldflags "-X github.com/leefowlercu/tokenscope/internal/version.gitCommit=VALUE".
var (
	gitCommit string
	buildDate string
)

// Info is version and build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// String formats Info for the version command.
func (i Info) String() string {
	return fmt.Sprintf("Version:    %s\nGit Commit: %s\nBuild Date: %s\nGo:         %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// Short is the one-line form used in the server banner and User-Agent.
func (i Info) Short() string {
	if i.GitCommit == "" || i.GitCommit == "unknown" {
		return i.Version
	}
	return i.Version + "+" + i.GitCommit
}

// Get returns the populated Info.
func Get() Info {
	return Info{
		Version:   getVersion(),
		GitCommit: getGitCommit(),
		BuildDate: getBuildDate(),
		GoVersion: runtime.Version(),
	}
}

func getVersion() string {
	return strings.TrimSpace(versionFile)
}

// getGitCommit prefers the linker flag, then VCS build info.
func getGitCommit() string {
	if gitCommit != "" {
		return gitCommit
	}
	revision, dirty := readBuildInfo()
	if revision == "" {
		return "unknown"
	}
	if dirty {
		return revision + "-dirty"
	}
	return revision
}

func getBuildDate() string {
	if buildDate != "" {
		return buildDate
	}
	if _, t := vcsSettings(); t != "" {
		return t
	}
	return "unknown"
}

func readBuildInfo() (revision string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return revision, dirty
}

// vcsSettings returns the VCS name and commit time, if recorded.
func vcsSettings() (vcs, time string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs":
			vcs = s.Value
		case "vcs.time":
			time = s.Value
		}
	}
	return vcs, time
}
