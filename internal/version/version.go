// Package version holds build metadata injected via -ldflags at build time.
package version

// Version defaults to "dev" and Commit to "none"; both are overridden at
// build time with:
//
//	-ldflags "-X github.com/xxrenzhe/syncsocial/internal/version.Version=1.2.3 -X github.com/xxrenzhe/syncsocial/internal/version.Commit=abcdef"
var (
	Version = "dev"
	Commit  = "none"
)
