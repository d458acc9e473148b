package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/horago/blobstore"
	"github.com/hupe1980/horago/blobstore/storetest"
)

const bucket = "test-bucket"

func keyIs(key string) func(*s3.HeadObjectInput) bool {
	return func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == key && aws.ToString(in.Bucket) == bucket
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		client := new(MockS3Client)
		store := NewStore(client, bucket, "prefix")

		client.On("HeadObject", mock.Anything, mock.MatchedBy(keyIs("prefix/missing"))).
			Return(nil, &types.NotFound{}).Once()

		_, err := store.Open(ctx, "missing")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
		client.AssertExpectations(t)
	})

	t.Run("NoSuchKey", func(t *testing.T) {
		client := new(MockS3Client)
		store := NewStore(client, bucket, "")

		client.On("HeadObject", mock.Anything, mock.Anything).
			Return(nil, &types.NoSuchKey{}).Once()

		_, err := store.Open(ctx, "missing")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("ReadAt", func(t *testing.T) {
		client := new(MockS3Client)
		store := NewStore(client, bucket, "prefix")

		client.On("HeadObject", mock.Anything, mock.MatchedBy(keyIs("prefix/idx.hora"))).
			Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(10)}, nil).Once()
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return aws.ToString(in.Range) == "bytes=0-4"
		})).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("hello")))}, nil).Once()
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return aws.ToString(in.Range) == "bytes=8-9"
		})).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("ld")))}, nil).Once()

		blob, err := store.Open(ctx, "idx.hora")
		require.NoError(t, err)
		defer blob.Close()
		assert.Equal(t, int64(10), blob.Size())

		buf := make([]byte, 5)
		n, err := blob.ReadAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", string(buf))

		// Reads past the end are clipped.
		n, err = blob.ReadAt(buf, 8)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "ld", string(buf[:n]))

		_, err = blob.ReadAt(buf, 10)
		assert.Equal(t, io.EOF, err)

		client.AssertExpectations(t)
	})
}

func TestPut(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, bucket, "root")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		if aws.ToString(in.Key) != "root/a" {
			return false
		}
		data, _ := io.ReadAll(in.Body)
		return string(data) == "payload"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(context.Background(), "a", []byte("payload")))
	client.AssertExpectations(t)
}

func TestCreate(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, bucket, "")

	var uploaded []byte
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "dump.hora"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		uploaded, _ = io.ReadAll(in.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	w, err := store.Create(context.Background(), "dump.hora")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	assert.Equal(t, "hello world", string(uploaded))
	assert.ErrorIs(t, w.Close(), blobstore.ErrClosed)
	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, blobstore.ErrClosed)
	client.AssertExpectations(t)
}

func TestCreateAbort(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, bucket, "")

	// The uploader reads from the pipe until the abort error surfaces and
	// never reaches PutObject.
	w, err := store.Create(context.Background(), "dump.hora")
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	require.NoError(t, w.Abort())

	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestDelete(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, bucket, "p")

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.Key) == "p/a"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()
	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.Key) == "p/gone"
	})).Return(nil, &types.NoSuchKey{}).Once()

	require.NoError(t, store.Delete(context.Background(), "a"))
	require.NoError(t, store.Delete(context.Background(), "gone"))
	client.AssertExpectations(t)
}

func TestInvalidNamesNeverReachClient(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, bucket, "p")
	ctx := context.Background()

	_, err := store.Open(ctx, "../escape")
	assert.ErrorIs(t, err, blobstore.ErrInvalidName)
	assert.ErrorIs(t, store.Put(ctx, "../escape", []byte("x")), blobstore.ErrInvalidName)
	assert.ErrorIs(t, store.Delete(ctx, "/abs"), blobstore.ErrInvalidName)
	client.AssertExpectations(t)
}

func TestList(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, bucket, "root")

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Prefix) == "root/idx/" && in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("root/idx/b")},
			{Key: aws.String("root/idx/a")},
		},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
	}, nil).Once()
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "next"
	})).Return(&s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("root/idx/c")}},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	names, err := store.List(context.Background(), "idx/")
	require.NoError(t, err)
	assert.Equal(t, []string{"idx/a", "idx/b", "idx/c"}, names)
	client.AssertExpectations(t)
}

func TestIntegration(t *testing.T) {
	bucketName := os.Getenv("S3_BUCKET")
	if bucketName == "" {
		t.Skip("S3_BUCKET not set")
	}

	ctx := context.Background()
	store, err := New(ctx, bucketName,
		WithPrefix("horago-test/"+t.Name()),
		WithRegion(os.Getenv("AWS_REGION")),
	)
	require.NoError(t, err)

	storetest.Run(t, store)
}
