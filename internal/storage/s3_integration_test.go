//go:build integration

package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_Integration(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)

	awsCfg, err := LoadAWSConfig(ctx, AWSConfig{
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
	})
	require.NoError(t, err)

	client := NewS3Client(awsCfg, S3ClientConfig{Endpoint: rc.Endpoint(), Bucket: "documents", UsePathStyle: true})
	require.NoError(t, client.EnsureBucket(ctx))
	require.NoError(t, client.EnsureBucket(ctx))

	key := DocumentKey("doc-1", "notes.txt")
	_, err = client.HeadObject(ctx, key)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	require.NoError(t, client.Upload(ctx, key, "text/plain", []byte("page one\fpage two")))

	meta, err := client.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(17), meta.ContentLength)

	data, err := client.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "page one\fpage two", string(data))

	chunks := []domain.Chunk{{Text: "page one", Metadata: domain.ChunkMetadata{DocumentID: "doc-1", PageRange: "1-2"}}}
	require.NoError(t, client.PutManifest(ctx, "doc-1", chunks))

	raw, err := client.Download(ctx, ManifestKey("doc-1"))
	require.NoError(t, err)
	var decoded []domain.Chunk
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, chunks, decoded)

	url, err := client.GenerateUploadURL(ctx, DocumentKey("doc-2", "a.pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Signature")
}
