package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . DownloadUseCase

import (
	"context"

	"github.com/m-mizutani/satchel/pkg/domain/model"
)

// DownloadUseCase prepares artifacts for the download handlers
type DownloadUseCase interface {
	// PrepareSingle resolves one URI to a servable artifact. Directories are archived.
	PrepareSingle(ctx context.Context, uri *model.URI) (*model.Artifact, error)

	// PrepareMulti stages same-parent URIs and archives them into one artifact
	PrepareMulti(ctx context.Context, uris []*model.URI) (*model.Artifact, error)

	// Release schedules best-effort removal of the artifact's temporary paths
	Release(ctx context.Context, artifact *model.Artifact)
}
