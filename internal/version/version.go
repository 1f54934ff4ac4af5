package version

// Version is the current noggin release.
const Version = "0.1.0"

// FullVersion returns the version with its v prefix.
func FullVersion() string {
	return "v" + Version
}
