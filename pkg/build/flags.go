// SPDX-License-Identifier: MIT
//
// Package build provides the build information of the binary: the
// application name, build timestamp, Git commit hash and semantic version.
// Release builds embed them with linker flags (see the Makefile); plain
// `go build` and `go install` binaries fall back to the module and VCS
// information recorded by the Go toolchain.
package build

import (
	"fmt"
	"runtime/debug"
)

const defaultName = "termspectrum"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    defaultName,
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

var readBuildInfo = debug.ReadBuildInfo

// Initialize copies the ldflags variables into the build information. When
// none are set the toolchain's build info is used instead. A partial set
// is an error: the release build is broken.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		fromBuildInfo()
		return nil
	}

	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

func fromBuildInfo() {
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" {
		buildFlags.Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			buildFlags.Commit = s.Value
		case "vcs.time":
			buildFlags.Time = s.Value
		}
	}
}

// GetBuildFlags returns the current build information. Initialize()
// must be called before this function.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for the version command.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
