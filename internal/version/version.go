// Package version provides build-time version information for m3udash.
//
// Version, Commit, and Date are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/m3udash/internal/version.Version=x.y.z \
//	                   -X github.com/jmylchreest/m3udash/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/jmylchreest/m3udash/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time variables injected via ldflags.
var (
	// Version is the semantic version. "dev" for local builds.
	Version = "dev"

	// Commit is the full git commit SHA.
	Commit = "unknown"

	// Date is the build timestamp in RFC3339 format.
	Date = "unknown"
)

// ApplicationName is the canonical name of this application.
const ApplicationName = "m3udash"

// Info contains structured version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns all version information as a structured type. Values not
// injected via ldflags fall back to the module build info, which covers
// binaries built with "go install".
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch {
		case setting.Key == "vcs.revision" && info.Commit == "unknown":
			info.Commit = setting.Value
		case setting.Key == "vcs.time" && info.Date == "unknown":
			info.Date = setting.Value
		}
	}
	return info
}

// String returns a human-readable version string.
func String() string {
	info := GetInfo()
	platform := info.OS + "/" + info.Arch
	if sha := shortCommit(info.Commit); sha != "" {
		return fmt.Sprintf("%s version %s (commit: %s, built: %s, %s, %s)",
			ApplicationName, info.Version, sha, info.Date, info.GoVersion, platform)
	}
	return fmt.Sprintf("%s version %s (%s, %s)", ApplicationName, info.Version, info.GoVersion, platform)
}

// Short returns a short version string suitable for CLI --version output.
func Short() string {
	info := GetInfo()
	if sha := shortCommit(info.Commit); sha != "" {
		return fmt.Sprintf("%s (%s)", info.Version, sha)
	}
	return info.Version
}

// JSON returns the version information encoded as indented JSON.
func JSON() string {
	data, err := json.MarshalIndent(GetInfo(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// UserAgent returns the application's own User-Agent string. Upstream
// playlist fetches use the configured browser identity instead; this one is
// reported by the health endpoint and the CLI.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ApplicationName, GetInfo().Version)
}

func shortCommit(commit string) string {
	if commit == "unknown" || len(commit) < 8 {
		return ""
	}
	return commit[:8]
}
