package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore("unit-bucket")
	ctx := context.Background()

	uri, err := store.Upload(ctx, "models/resnet152/model.tar.gz", strings.NewReader("artifact-bytes"), "application/gzip")
	require.NoError(t, err)
	assert.Equal(t, "mem://unit-bucket/models/resnet152/model.tar.gz", uri)

	reader, err := store.Download(ctx, "models/resnet152/model.tar.gz")
	require.NoError(t, err)
	raw, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "artifact-bytes", string(raw))

	signed, err := store.PresignGet(ctx, "models/resnet152/model.tar.gz", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, uri, signed)

	require.NoError(t, store.Delete(ctx, "models/resnet152/model.tar.gz"))
	_, err = store.Download(ctx, "models/resnet152/model.tar.gz")
	assert.Error(t, err)
}

func TestParseURI(t *testing.T) {
	scheme, bucket, key, err := ParseURI("s3://artifacts/models/m.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "s3", scheme)
	assert.Equal(t, "artifacts", bucket)
	assert.Equal(t, "models/m.tar.gz", key)

	for _, bad := range []string{"", "s3://", "s3://bucket", "s3://bucket/", "no-scheme/key"} {
		_, _, _, err := ParseURI(bad)
		assert.Error(t, err, "uri %q should be rejected", bad)
	}
}
