// Package version exposes build metadata injected with -ldflags:
//
//	-X 'github.com/mpdriver/mpdriver/pkg/version.Version=v1.0.0'
//	-X 'github.com/mpdriver/mpdriver/pkg/version.CommitHash=abc123'
//	-X 'github.com/mpdriver/mpdriver/pkg/version.BuildDate=2024-01-01T00:00:00Z'
package version

import (
	"runtime/debug"
)

const unknown = "unknown"

var (
	Version    = unknown
	CommitHash = unknown
	BuildDate  = unknown
)

type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

// Get returns the build information, falling back to the module build info
// when ldflags were not set.
func Get() Info {
	info := Info{Version: Version, CommitHash: CommitHash, BuildDate: BuildDate}
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == unknown && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}
	if info.CommitHash == unknown {
		for _, setting := range build.Settings {
			if setting.Key == "vcs.revision" {
				info.CommitHash = setting.Value
				break
			}
		}
	}
	return info
}
