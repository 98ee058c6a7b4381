package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/artifact"
	"github.com/modelport/modelport/internal/data/models"
	mperrors "github.com/modelport/modelport/internal/errors"
	"github.com/modelport/modelport/internal/ports"
)

const artifactContentType = "application/gzip"

// ArtifactService packages model files into a tar.gz archive and pushes the
// archive to the object store, returning the artifact record whose URI feeds
// deployment.
type ArtifactService struct {
	store ports.ObjectStore
}

func NewArtifactService(store ports.ObjectStore) *ArtifactService {
	return &ArtifactService{store: store}
}

// PackageAndUpload archives the given files under a temp path, uploads the
// archive at models/<modelName>.tar.gz, and removes the local archive.
func (s *ArtifactService) PackageAndUpload(ctx context.Context, modelName, entryPoint string, files ...string) (models.ModelArtifact, error) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return models.ModelArtifact{}, fmt.Errorf("%w: model name is required", mperrors.ErrInvalidRequest)
	}
	if len(files) == 0 {
		return models.ModelArtifact{}, fmt.Errorf("%w: at least one file is required", mperrors.ErrInvalidRequest)
	}

	tmpDir, err := os.MkdirTemp("", "modelport-artifact-")
	if err != nil {
		return models.ModelArtifact{}, err
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, modelName+".tar.gz")
	archive, err := artifact.Package(archivePath, files...)
	if err != nil {
		return models.ModelArtifact{}, fmt.Errorf("failed to package %s: %w", modelName, err)
	}

	f, err := os.Open(archive.Path)
	if err != nil {
		return models.ModelArtifact{}, err
	}
	defer f.Close()

	key := "models/" + modelName + ".tar.gz"
	uri, err := s.store.Upload(ctx, key, f, artifactContentType)
	if err != nil {
		return models.ModelArtifact{}, fmt.Errorf("failed to upload artifact %s: %w", key, err)
	}

	log.Info().
		Str("model", modelName).
		Str("uri", uri).
		Str("sha256", archive.SHA256).
		Int64("size_bytes", archive.SizeBytes).
		Msg("model artifact uploaded")

	return models.ModelArtifact{
		ModelName:  modelName,
		URI:        uri,
		SHA256:     archive.SHA256,
		SizeBytes:  archive.SizeBytes,
		EntryPoint: entryPoint,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Remove deletes the uploaded archive for a model from the object store.
func (s *ArtifactService) Remove(ctx context.Context, modelName string) error {
	return s.store.Delete(ctx, "models/"+strings.TrimSpace(modelName)+".tar.gz")
}
