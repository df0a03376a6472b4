package interfaces

import (
	"context"

	"github.com/m-mizutani/satchel/pkg/domain/model"
)

// FileStater tells whether a URI exists and whether it is a directory
type FileStater interface {
	// Stat returns nil and no error when the URI does not exist
	Stat(ctx context.Context, uri *model.URI) (*model.FileStat, error)
}

// FileSystem is the stat and staging capability over the workspace
type FileSystem interface {
	FileStater

	// CopyInto copies src (recursively if it is a directory) to dstDir/<base name of src>
	CopyInto(ctx context.Context, src, dstDir string) error
}

// Archiver packs a directory into a zip file
type Archiver interface {
	Archive(ctx context.Context, srcDir, dstPath string) error
}

// TempWorkspace owns ephemeral staging directories and archive paths
type TempWorkspace interface {
	// MkdirTemp creates a fresh, uniquely named directory
	MkdirTemp(ctx context.Context) (string, error)

	// TempFilePath returns a unique path with the given extension; the file is not created
	TempFilePath(ext string) string

	// Remove deletes paths in the background. The returned channel yields
	// each failure and is closed when all removals are done.
	Remove(ctx context.Context, paths ...string) <-chan error
}
