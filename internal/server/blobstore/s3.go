package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/gophbackup/internal/common"
)

// s3API is the part of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Options configure an S3-compatible backend such as MinIO.
type S3Options struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
	// Prefix is prepended to every object key.
	Prefix string
}

// seams for tests
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Store keeps blobs as objects in one bucket. It backs the cold tier when
// compressed copies should leave the local disk.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store builds a client with static credentials and path-style addressing.
func NewS3Store(ctx context.Context, o S3Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(o.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		so.UsePathStyle = true
	})

	return newS3StoreWithClient(client, o.Bucket, o.Prefix), nil
}

func newS3StoreWithClient(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Store) Read(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: get %s: %w", common.ErrBlobIO, name, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("%w: get %s: %w", common.ErrBlobIO, name, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body %s: %w", common.ErrBlobIO, name, err)
	}
	return b, nil
}

func (s *S3Store) Write(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", common.ErrBlobIO, name, err)
	}
	return nil
}

// Delete is idempotent: S3 reports success for absent keys.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", common.ErrBlobIO, name, err)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, fmt.Errorf("%w: head %s: %w", common.ErrBlobIO, name, err)
}
