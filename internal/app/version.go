package app

// Version is the semantic version of figmamcp, set at build time via -ldflags.
var Version = "dev"

// Build is the git commit hash or build identifier, set at build time via -ldflags.
var Build = "unknown"

// UserAgent identifies figmamcp to the Figma API.
func UserAgent() string {
	return "figmamcp/" + Version
}
