package version

// Version is set at build time with
// -ldflags "-X github.com/rubiojr/codesnippets/pkg/version.Version=..."
var Version = "0.1.0"

// BuildVersion returns the version string for display
func BuildVersion() string {
	return "codesnippets version " + Version
}

// APIVersion returns just the version number for API responses
func APIVersion() string {
	return Version
}

// UserAgent is sent by the HTTP client.
func UserAgent() string {
	return "codesnippets/" + Version
}
