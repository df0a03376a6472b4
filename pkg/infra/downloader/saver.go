package downloader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/model"
)

// DirSaver writes payloads into a directory
type DirSaver struct {
	dir string
}

// NewDirSaver creates a DirSaver for dir
func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{dir: dir}
}

// Save writes data to a transient file and renames it to name. The transient
// file is removed whether or not the rename happened.
func (s *DirSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = model.FallbackName
	}
	dst := filepath.Join(s.dir, base)

	tmp, err := os.CreateTemp(s.dir, ".satchel-download-*")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create transient file", goerr.V("dir", s.dir))
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			ctxlog.From(ctx).Warn("Failed to remove transient download file", "path", tmpPath, "error", err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", goerr.Wrap(err, "failed to write download", goerr.V("path", tmpPath))
	}
	if err := tmp.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close download", goerr.V("path", tmpPath))
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return "", goerr.Wrap(err, "failed to save download", goerr.V("path", dst))
	}
	return dst, nil
}
