package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/gophbackup/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	failErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3Store_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newS3StoreWithClient(fake, "coldtier", "cold")

	require.NoError(t, s.Write(ctx, "idle.bin.gz", []byte("packed")))
	assert.Contains(t, fake.objects, "coldtier/cold/idle.bin.gz")

	ok, err := s.Exists(ctx, "idle.bin.gz")
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := s.Read(ctx, "idle.bin.gz")
	require.NoError(t, err)
	assert.Equal(t, "packed", string(b))

	require.NoError(t, s.Delete(ctx, "idle.bin.gz"))
	ok, err = s.Exists(ctx, "idle.bin.gz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Store_ReadMissingIsNotExist(t *testing.T) {
	s := newS3StoreWithClient(newFakeS3(), "coldtier", "")

	_, err := s.Read(context.Background(), "missing.gz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(err, common.ErrBlobIO))
}

func TestS3Store_BackendErrorsWrapBlobIO(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.failErr = errors.New("connection refused")
	s := newS3StoreWithClient(fake, "coldtier", "")

	for name, err := range map[string]error{
		"write":  s.Write(ctx, "a", []byte("x")),
		"delete": s.Delete(ctx, "a"),
	} {
		assert.True(t, errors.Is(err, common.ErrBlobIO), name)
	}
	_, err := s.Read(ctx, "a")
	assert.True(t, errors.Is(err, common.ErrBlobIO))
	_, err = s.Exists(ctx, "a")
	assert.True(t, errors.Is(err, common.ErrBlobIO))
}

func TestNewS3Store_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "admin", creds.AccessKeyID)
		return aws.Config{Region: lo.Region}, nil
	}

	var applied s3.Options
	fake := newFakeS3()
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&applied)
		}
		return fake
	}

	s, err := NewS3Store(context.Background(), S3Options{
		User: "admin", Password: "secret", Bucket: "coldtier", Region: "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9002/",
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, applied.UsePathStyle)
	require.NotNil(t, applied.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9002/", *applied.BaseEndpoint)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}

	_, err := NewS3Store(context.Background(), S3Options{})
	require.Error(t, err)
}
