package archive

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/klauspost/compress/zip"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Zipper writes the contents of a directory into a zip archive
type Zipper struct {
	method uint16
}

// Option configures a Zipper
type Option func(*Zipper)

// WithStore disables compression
func WithStore() Option {
	return func(z *Zipper) {
		z.method = zip.Store
	}
}

// New creates a Zipper that deflates entries by default
func New(opts ...Option) *Zipper {
	z := &Zipper{
		method: zip.Deflate,
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Archive packs srcDir recursively into dstPath. Entry names are relative to
// srcDir. srcDir is left untouched.
func (z *Zipper) Archive(ctx context.Context, srcDir, dstPath string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return goerr.Wrap(err, "failed to stat archive source", goerr.V("src", srcDir))
	}
	if !info.IsDir() {
		return goerr.New("archive source is not a directory", goerr.V("src", srcDir))
	}

	return z.ArchiveFS(ctx, osfs.New(srcDir), dstPath)
}

// ArchiveFS packs the whole of src into dstPath. The archive is written to a
// sibling file and renamed on success, so dstPath never holds a partial
// archive.
func (z *Zipper) ArchiveFS(ctx context.Context, src billy.Filesystem, dstPath string) error {
	// keeps dstPath's name as prefix so an abandoned part file is swept with it
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), filepath.Base(dstPath)+".*.part")
	if err != nil {
		return goerr.Wrap(err, "failed to create archive file", goerr.V("dst", dstPath))
	}
	tmpPath := tmp.Name()

	if err := z.write(ctx, tmp, src); err != nil {
		_ = tmp.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			ctxlog.From(ctx).Warn("Failed to remove partial archive", "path", tmpPath, "error", rmErr)
		}
		return goerr.Wrap(err, "failed to write archive", goerr.V("dst", dstPath))
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return goerr.Wrap(err, "failed to close archive file", goerr.V("dst", dstPath))
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return goerr.Wrap(err, "failed to move archive into place", goerr.V("dst", dstPath))
	}

	return nil
}

func (z *Zipper) write(ctx context.Context, w io.Writer, src billy.Filesystem) error {
	zw := zip.NewWriter(w)
	if err := z.addDir(ctx, zw, src, "/", ""); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize zip")
	}
	return nil
}

func (z *Zipper) addDir(ctx context.Context, zw *zip.Writer, src billy.Filesystem, dir, prefix string) error {
	entries, err := src.ReadDir(dir)
	if err != nil {
		return goerr.Wrap(err, "failed to read directory", goerr.V("dir", dir))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, fi := range entries {
		if err := ctx.Err(); err != nil {
			return goerr.Wrap(err, "archiving interrupted")
		}

		fsPath := src.Join(dir, fi.Name())
		name := path.Join(prefix, fi.Name())

		if fi.Mode()&os.ModeSymlink != 0 {
			target, err := src.Stat(fsPath)
			if err != nil || !target.Mode().IsRegular() {
				ctxlog.From(ctx).Debug("Skipping symlink in archive", "path", fsPath)
				continue
			}
			fi = target
		}

		switch {
		case fi.IsDir():
			hdr, err := zip.FileInfoHeader(fi)
			if err != nil {
				return goerr.Wrap(err, "failed to build zip header", goerr.V("name", name))
			}
			hdr.Name = name + "/"
			hdr.Method = zip.Store
			if _, err := zw.CreateHeader(hdr); err != nil {
				return goerr.Wrap(err, "failed to add directory entry", goerr.V("name", name))
			}
			if err := z.addDir(ctx, zw, src, fsPath, name); err != nil {
				return err
			}

		case fi.Mode().IsRegular():
			if err := z.addFile(zw, src, fsPath, name, fi); err != nil {
				return err
			}

		default:
			ctxlog.From(ctx).Debug("Skipping special file in archive", "path", fsPath, "mode", fi.Mode().String())
		}
	}

	return nil
}

func (z *Zipper) addFile(zw *zip.Writer, src billy.Filesystem, fsPath, name string, fi os.FileInfo) error {
	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return goerr.Wrap(err, "failed to build zip header", goerr.V("name", name))
	}
	hdr.Name = name
	hdr.Method = z.method

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return goerr.Wrap(err, "failed to add file entry", goerr.V("name", name))
	}

	f, err := src.Open(fsPath)
	if err != nil {
		return goerr.Wrap(err, "failed to open file", goerr.V("path", fsPath))
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return goerr.Wrap(err, "failed to copy file into archive", goerr.V("path", fsPath))
	}
	return nil
}
