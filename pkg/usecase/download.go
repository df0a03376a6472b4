package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/interfaces"
	"github.com/m-mizutani/satchel/pkg/domain/model"
	"github.com/m-mizutani/satchel/pkg/domain/types"
)

const zipExt = ".zip"

type downloadUseCase struct {
	fs        interfaces.FileSystem
	archiver  interfaces.Archiver
	workspace interfaces.TempWorkspace
}

// NewDownload creates a new instance of DownloadUseCase
func NewDownload(
	fs interfaces.FileSystem,
	archiver interfaces.Archiver,
	workspace interfaces.TempWorkspace,
) interfaces.DownloadUseCase {
	return &downloadUseCase{
		fs:        fs,
		archiver:  archiver,
		workspace: workspace,
	}
}

// PrepareSingle resolves a single URI. Regular files are served in place;
// directories are archived into a temp file named after the directory.
func (uc *downloadUseCase) PrepareSingle(ctx context.Context, uri *model.URI) (*model.Artifact, error) {
	logger := ctxlog.From(ctx)

	stat, err := uc.fs.Stat(ctx, uri)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, goerr.New("the file does not exist",
			goerr.V("uri", uri.String()), goerr.T(types.ErrTagNotFound))
	}

	if !stat.IsDirectory {
		return &model.Artifact{
			Path: stat.Path,
			Name: uri.Base(),
		}, nil
	}

	zipPath := uc.workspace.TempFilePath(zipExt)
	artifact := &model.Artifact{
		Path:      zipPath,
		Name:      uri.Base() + zipExt,
		Temporary: []string{zipPath},
	}

	if err := uc.archiver.Archive(ctx, stat.Path, zipPath); err != nil {
		uc.Release(ctx, artifact)
		return nil, goerr.Wrap(err, "failed to archive directory", goerr.V("uri", uri.String()))
	}

	logger.Debug("Archived directory for download",
		"uri", uri.String(),
		"zip", zipPath,
	)
	return artifact, nil
}

// PrepareMulti validates that every URI shares the first URI's parent and
// exists, then stages them into one temp directory and archives it as
// <parent name>.zip. Validation finishes before any temp resource exists.
func (uc *downloadUseCase) PrepareMulti(ctx context.Context, uris []*model.URI) (*model.Artifact, error) {
	logger := ctxlog.From(ctx)

	if len(uris) == 0 {
		return nil, goerr.New("no URIs were defined by the request body", goerr.T(types.ErrTagBadRequest))
	}

	parent := uris[0].Parent()
	expectedParent := parent.String()
	for _, uri := range uris[1:] {
		if uri.Parent().String() != expectedParent {
			return nil, goerr.New("each URI must have the same parent",
				goerr.V("expected_parent", expectedParent),
				goerr.V("uri", uri.String()),
				goerr.T(types.ErrTagBadRequest))
		}
	}

	paths := make([]string, 0, len(uris))
	for _, uri := range uris {
		stat, err := uc.fs.Stat(ctx, uri)
		if err != nil {
			return nil, err
		}
		if stat == nil {
			return nil, goerr.New("the file does not exist",
				goerr.V("uri", uri.String()), goerr.T(types.ErrTagNotFound))
		}
		paths = append(paths, stat.Path)
	}

	stageDir, err := uc.workspace.MkdirTemp(ctx)
	if err != nil {
		return nil, err
	}

	zipPath := uc.workspace.TempFilePath(zipExt)
	artifact := &model.Artifact{
		Path:      zipPath,
		Name:      parent.Base() + zipExt,
		Temporary: []string{zipPath, stageDir},
	}

	// base names are unique under one parent, so staging never collides
	for _, p := range paths {
		if err := uc.fs.CopyInto(ctx, p, stageDir); err != nil {
			uc.Release(ctx, artifact)
			return nil, goerr.Wrap(err, "failed to stage file for download", goerr.V("path", p))
		}
	}

	if err := uc.archiver.Archive(ctx, stageDir, zipPath); err != nil {
		uc.Release(ctx, artifact)
		return nil, goerr.Wrap(err, "failed to archive staged files", goerr.V("stage_dir", stageDir))
	}

	logger.Debug("Prepared multi-file download",
		"parent", expectedParent,
		"file_count", len(paths),
		"zip", zipPath,
	)
	return artifact, nil
}

// Release schedules deletion of the artifact's temp paths without waiting.
// Failures are logged and never reach the caller.
func (uc *downloadUseCase) Release(ctx context.Context, artifact *model.Artifact) {
	if artifact == nil || len(artifact.Temporary) == 0 {
		return
	}

	errCh := uc.workspace.Remove(ctx, artifact.Temporary...)
	logger := ctxlog.From(ctx)
	go func() {
		for err := range errCh {
			logger.Warn("An error occurred while deleting temporary data", "error", err)
		}
	}()
}
