// Package env holds build-time version metadata, populated via
// -ldflags "-X" at link time.
package env

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

// AppName is the binary/CLI name used for cobra's root command Use field
// and the ExtractionManifest's tool_version prefix.
const AppName = "ntfstriage"

// ToolVersion renders the string recorded in ExtractionManifest.tool_version.
func ToolVersion() string {
	return AppName + " " + Version + " (" + CommitHash + ")"
}
