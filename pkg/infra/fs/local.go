package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/model"
)

// Local resolves file URIs against the local filesystem
type Local struct{}

// NewLocal creates a Local filesystem
func NewLocal() *Local {
	return &Local{}
}

// Stat returns nil and no error when the URI does not exist
func (x *Local) Stat(ctx context.Context, uri *model.URI) (*model.FileStat, error) {
	p, err := uri.FSPath()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to stat file", goerr.V("uri", uri.String()))
	}

	return &model.FileStat{
		URI:         uri,
		Path:        p,
		IsDirectory: info.IsDir(),
		Size:        info.Size(),
	}, nil
}

// CopyInto copies src to dstDir under its base name. Directories are copied recursively.
func (x *Local) CopyInto(ctx context.Context, src, dstDir string) error {
	srcFS := osfs.New(filepath.Dir(src))
	dstFS := osfs.New(dstDir)
	return Copy(ctx, srcFS, dstFS, filepath.Base(src))
}

// Copy copies name from srcFS to the same name in dstFS. name itself is
// resolved through symlinks; below it, a symlink is copied only when it points
// to a regular file, so linked directories and cycles are never descended.
func Copy(ctx context.Context, srcFS, dstFS billy.Filesystem, name string) error {
	info, err := srcFS.Stat(name)
	if err != nil {
		return goerr.Wrap(err, "failed to stat copy source", goerr.V("name", name))
	}
	return copyEntry(ctx, srcFS, dstFS, name, info)
}

func copyEntry(ctx context.Context, srcFS, dstFS billy.Filesystem, name string, info os.FileInfo) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "copy interrupted", goerr.V("name", name))
	}

	switch {
	case info.IsDir():
		if err := dstFS.MkdirAll(name, info.Mode().Perm()|0700); err != nil {
			return goerr.Wrap(err, "failed to create directory", goerr.V("name", name))
		}
		entries, err := srcFS.ReadDir(name)
		if err != nil {
			return goerr.Wrap(err, "failed to read directory", goerr.V("name", name))
		}
		for _, entry := range entries {
			child := srcFS.Join(name, entry.Name())
			if entry.Mode()&os.ModeSymlink != 0 {
				target, err := srcFS.Stat(child)
				if err != nil || !target.Mode().IsRegular() {
					ctxlog.From(ctx).Debug("Skipping symlink while staging", "name", child)
					continue
				}
				entry = target
			}
			if err := copyEntry(ctx, srcFS, dstFS, child, entry); err != nil {
				return err
			}
		}
		return nil

	case info.Mode().IsRegular():
		return copyFile(srcFS, dstFS, name, info.Mode().Perm())

	default:
		ctxlog.From(ctx).Debug("Skipping special file while staging", "name", name, "mode", info.Mode().String())
		return nil
	}
}

func copyFile(srcFS, dstFS billy.Filesystem, name string, perm os.FileMode) error {
	in, err := srcFS.Open(name)
	if err != nil {
		return goerr.Wrap(err, "failed to open copy source", goerr.V("name", name))
	}
	defer in.Close()

	out, err := dstFS.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0600)
	if err != nil {
		return goerr.Wrap(err, "failed to create copy destination", goerr.V("name", name))
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return goerr.Wrap(err, "failed to copy file", goerr.V("name", name))
	}
	if err := out.Close(); err != nil {
		return goerr.Wrap(err, "failed to close copy destination", goerr.V("name", name))
	}
	return nil
}
