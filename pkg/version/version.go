// Package version exposes build metadata for the evidencemcp binary.
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name reported by the CLI and the MCP handshake.
const Name = "evidencemcp"

// Version is injected with
// -X github.com/Aman-CERP/evidencemcp/pkg/version.Version=$(VERSION).
var Version = "dev"

var (
	// Commit is the short git hash of the build.
	Commit = "unknown"

	// Date is the build time in RFC3339.
	Date = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo is the JSON shape of `evidencemcp version --json`.
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line summary of the build.
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s, %s/%s)",
		Name, Version, Commit, Date, GoVersion, runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version.
func Short() string {
	return Version
}

// UserAgent is sent on outbound source requests.
func UserAgent() string {
	return Name + "/" + Version
}

func GetInfo() BuildInfo {
	return BuildInfo{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
