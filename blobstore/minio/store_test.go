package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/horago/blobstore/storetest"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// TestStore_Integration requires a running MinIO instance.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	accessKey := getenv("MINIO_ACCESS_KEY", "minioadmin")
	secretKey := getenv("MINIO_SECRET_KEY", "minioadmin")
	bucket := getenv("MINIO_BUCKET", "test-horago")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	storetest.Run(t, NewStore(client, bucket, "test-prefix/"+t.Name()))
}

func TestIsNotFound(t *testing.T) {
	require.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	require.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	require.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}
