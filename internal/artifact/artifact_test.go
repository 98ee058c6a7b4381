package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageAndUnpackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "resnet152.onnx")
	entryPath := filepath.Join(dir, "resnet152_entry.json")
	require.NoError(t, os.WriteFile(modelPath, []byte("onnx-bytes"), 0o644))
	require.NoError(t, os.WriteFile(entryPath, []byte(`{"entry":"serve"}`), 0o644))

	archivePath := filepath.Join(dir, "model.tar.gz")
	archive, err := Package(archivePath, modelPath, entryPath)
	require.NoError(t, err)
	assert.Equal(t, archivePath, archive.Path)
	assert.Len(t, archive.SHA256, 64)
	assert.Greater(t, archive.SizeBytes, int64(0))

	outDir := t.TempDir()
	extracted, err := Unpack(archivePath, outDir)
	require.NoError(t, err)
	require.Len(t, extracted, 2)

	got, err := os.ReadFile(filepath.Join(outDir, "resnet152.onnx"))
	require.NoError(t, err)
	assert.Equal(t, []byte("onnx-bytes"), got)
}

func TestPackageDigestIsStableForSameContent(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.onnx")
	require.NoError(t, os.WriteFile(modelPath, []byte("fixed-content"), 0o644))

	first, err := Package(filepath.Join(dir, "a.tar.gz"), modelPath)
	require.NoError(t, err)
	second, err := Package(filepath.Join(dir, "b.tar.gz"), modelPath)
	require.NoError(t, err)

	// Same bytes, same flattened name; only tar mtimes could differ and they
	// come from the same source file.
	assert.Equal(t, first.SHA256, second.SHA256)
}

func TestPackageRejectsMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Package(filepath.Join(dir, "out.tar.gz"), filepath.Join(dir, "missing.onnx"))
	assert.Error(t, err)
}

func TestPackageRemovesPartialArchiveOnFailure(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.onnx")
	require.NoError(t, os.WriteFile(modelPath, []byte("onnx-bytes"), 0o644))

	// The first file archives fine, the second does not exist; the partial
	// archive written so far must not survive the failure.
	archivePath := filepath.Join(dir, "out.tar.gz")
	_, err := Package(archivePath, modelPath, filepath.Join(dir, "missing.onnx"))
	require.Error(t, err)

	_, err = os.Stat(archivePath)
	assert.True(t, os.IsNotExist(err), "expected partial archive to be removed")
}

func TestPackageRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	_, err := Package(filepath.Join(dir, "out.tar.gz"), sub)
	assert.Error(t, err)
}
