// Package utils holds small helpers shared by the raggadon binary and server
// that don't warrant their own package.
package utils

// Build metadata, overridden at link time with -ldflags "-X".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// UserAgent identifies raggadon in outbound HTTP requests.
func UserAgent() string {
	return "raggadon/" + Version
}
