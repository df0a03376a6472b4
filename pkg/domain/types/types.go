package types

// Version is overwritten at build time with -ldflags
var Version = "dev"

const (
	// AppName is used for temp artifact prefixes and the health response
	AppName = "satchel"

	// DefaultEndpoint is the path the download handlers are mounted on
	DefaultEndpoint = "/file-download"
)
