// Package version holds build information for the codelists binary.
package version

// Set at build time:
// go build -ldflags "-X codelists/internal/version.Version=1.0.0 -X codelists/internal/version.Commit=abc123"
var (
	// Version is the semantic version of codelists
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a short version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "codelists version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
