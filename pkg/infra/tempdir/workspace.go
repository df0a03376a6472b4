package tempdir

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/types"
	"github.com/m-mizutani/satchel/pkg/utils/async"
)

// Prefix marks every entry created by a Workspace, so that Sweep only
// touches our own artifacts in a shared temp root.
const Prefix = types.AppName + "-"

// Workspace manages ephemeral staging directories and archive files under a
// temp root shared by concurrent requests. Names are random UUIDs, so no
// locking is needed.
type Workspace struct {
	root string
}

// Option configures a Workspace
type Option func(*Workspace)

// WithRoot sets the temp root. Defaults to os.TempDir().
func WithRoot(root string) Option {
	return func(w *Workspace) {
		if root != "" {
			w.root = root
		}
	}
}

// New creates a Workspace
func New(opts ...Option) *Workspace {
	w := &Workspace{
		root: os.TempDir(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the temp root
func (w *Workspace) Root() string {
	return w.root
}

func (w *Workspace) newName() string {
	return Prefix + uuid.NewString()
}

// MkdirTemp creates a fresh directory with 0700 permission
func (w *Workspace) MkdirTemp(ctx context.Context) (string, error) {
	dir := filepath.Join(w.root, w.newName())
	if err := os.Mkdir(dir, 0700); err != nil {
		return "", goerr.Wrap(err, "failed to create temporary directory", goerr.V("dir", dir))
	}

	ctxlog.From(ctx).Debug("Created temporary directory", "dir", dir)
	return dir, nil
}

// TempFilePath returns a unique path under the root. The file is not created.
func (w *Workspace) TempFilePath(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(w.root, w.newName()+ext)
}

// Remove deletes paths recursively in the background. Failures are sent on
// the returned channel, which is closed once every path is handled. Missing
// paths are not an error.
func (w *Workspace) Remove(ctx context.Context, paths ...string) <-chan error {
	out := make(chan error, len(paths)+1)
	if len(paths) == 0 {
		close(out)
		return out
	}

	errCh := async.Dispatch(ctx, func(ctx context.Context) error {
		logger := ctxlog.From(ctx)
		for _, p := range paths {
			if err := os.RemoveAll(p); err != nil {
				out <- goerr.Wrap(err, "failed to clean up temporary data", goerr.V("path", p))
				continue
			}
			logger.Debug("Removed temporary data", "path", p)
		}
		return nil
	})

	go func() {
		defer close(out)
		// only a panic inside the removal loop reaches here
		for err := range errCh {
			out <- err
		}
	}()

	return out
}

// Sweep removes workspace entries whose modification time is older than
// maxAge. It returns the number of removed entries.
func (w *Workspace) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	logger := ctxlog.From(ctx)

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read temp root", goerr.V("root", w.root))
	}

	threshold := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed concurrently by its owner
			continue
		}
		if info.ModTime().After(threshold) {
			continue
		}

		p := filepath.Join(w.root, entry.Name())
		if err := os.RemoveAll(p); err != nil {
			logger.Warn("Failed to sweep orphaned temporary data", "path", p, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("Swept orphaned temporary data", "root", w.root, "removed", removed)
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled
func (w *Workspace) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx, maxAge); err != nil {
				ctxlog.From(ctx).Warn("Temp sweep failed", "error", err)
			}
		}
	}
}
