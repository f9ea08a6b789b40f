// Package version carries build information stamped with -ldflags.
package version

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// VersionInfo is the build information reported by the debug endpoint.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// Info returns the stamped build information.
func Info() VersionInfo {
	return VersionInfo{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
}

// UserAgent is sent to the SPARQL store when SPARQL_USER_AGENT is empty.
func UserAgent() string {
	return "flexo-mms-layer1/" + Version
}
