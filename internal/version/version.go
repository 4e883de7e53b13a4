// Package version exposes build metadata for the authcrawl binary.
//
// Release builds set the variables below with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/authcrawl/internal/version.Version=0.3.0 ..."
//
// Builds without ldflags fall back to the module version recorded by
// "go install", when there is one.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Name is the program name.
const Name = "authcrawl"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	Dirty     = "false"
	BuildDate = "unknown"
)

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info is the structured form printed by "version --json".
type Info struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Dirty     bool   `json:"dirty" yaml:"dirty"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the current version information.
func Get() Info {
	return Info{
		Name:      Name,
		Version:   resolved(),
		Commit:    Commit,
		Dirty:     Dirty == "true",
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// resolved prefers the ldflags version, then the module version.
func resolved() string {
	if Version != "dev" {
		return Version
	}
	if bi, ok := readBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return strings.TrimPrefix(bi.Main.Version, "v")
	}
	return Version
}

// String returns a single-line version string.
func String() string {
	v := resolved()
	if Dirty == "true" {
		v += "-dirty"
	}
	return v
}

// UserAgentSuffix identifies crawler traffic in server logs, e.g.
// "authcrawl/0.3.0".
func UserAgentSuffix() string {
	return Name + "/" + String()
}

// Full returns a multi-line version string with all details.
func Full() string {
	info := Get()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", Name, String())
	fmt.Fprintf(&sb, "  Commit:     %s\n", info.Commit)
	if info.Dirty {
		sb.WriteString("  Dirty:      yes\n")
	}
	fmt.Fprintf(&sb, "  Built:      %s\n", info.BuildDate)
	fmt.Fprintf(&sb, "  Go version: %s\n", info.GoVersion)
	fmt.Fprintf(&sb, "  OS/Arch:    %s", info.Platform)
	return sb.String()
}
