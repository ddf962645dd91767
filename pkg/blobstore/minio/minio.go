package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"blobrun/internal/connection"
	"blobrun/pkg/blobstore"
)

// Store implements blobstore.BlobStore on MinIO.
type Store struct {
	client *minio.Client
}

// New wraps a MinIO client into a Store, pinging the service with a
// ListBuckets call so misconfiguration fails at construction time.
func New(client *minio.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("failed to create minio store: client is nil")
	}

	if _, err := client.ListBuckets(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	return &Store{client: client}, nil
}

// Connect builds a Store from an AuthConfig. Supported connect types:
// withCredential (static access/secret key) and withEnv
// (MINIO_ACCESS_KEY / MINIO_SECRET_KEY).
func Connect(endpoint string, config *connection.AuthConfig, minioOptions *minio.Options) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("AuthConfig cannot be nil")
	}

	if minioOptions == nil {
		minioOptions = &minio.Options{Secure: false}
	}

	if endpoint == "" || endpoint == "default" {
		endpoint = "localhost:9000"
	}
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	switch config.GetConnectType() {
	case connection.ConnectTypeCredential:
		if config.GetAccessKey() == "" || config.GetSecretKey() == "" {
			return nil, fmt.Errorf("access key and/or secret key not set")
		}
		minioOptions.Creds = credentials.NewStaticV4(config.GetAccessKey(), config.GetSecretKey(), "")
	case connection.ConnectTypeEnv:
		accessKey := os.Getenv("MINIO_ACCESS_KEY")
		secretKey := os.Getenv("MINIO_SECRET_KEY")
		if accessKey == "" || secretKey == "" {
			return nil, fmt.Errorf("environment variables MINIO_ACCESS_KEY and/or MINIO_SECRET_KEY are not set")
		}
		minioOptions.Creds = credentials.NewStaticV4(accessKey, secretKey, "")
	default:
		return nil, fmt.Errorf("invalid connection type for MinIO: %s", config.GetConnectType())
	}

	client, err := minio.New(endpoint, minioOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return New(client)
}

// GetClient returns the underlying MinIO client.
func (s *Store) GetClient() *minio.Client {
	return s.client
}

func (s *Store) Provider() string {
	return "minio"
}

func (s *Store) CreateContainer(ctx context.Context, bucketName string) error {
	err := s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerAlreadyExists, bucketName)
		}
		return err
	}

	return nil
}

// SetContainerPublicRead attaches a bucket policy that allows
// anonymous GetObject on every key in the bucket.
func (s *Store) SetContainerPublicRead(ctx context.Context, bucketName string) error {
	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		}]
	}`, bucketName)

	err := s.client.SetBucketPolicy(ctx, bucketName, policy)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
		}
		return fmt.Errorf("minio set bucket policy: %w", err)
	}

	return nil
}

// DeleteContainer removes every object and then the bucket itself.
// MinIO, like S3, only removes empty buckets.
func (s *Store) DeleteContainer(ctx context.Context, bucketName string) error {
	for object := range s.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			if minio.ToErrorResponse(object.Err).Code == "NoSuchBucket" {
				return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
			}
			return fmt.Errorf("failed to list objects in bucket %s: %w", bucketName, object.Err)
		}

		if err := s.client.RemoveObject(ctx, bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove object %s from bucket %s: %w", object.Key, bucketName, err)
		}
	}

	err := s.client.RemoveBucket(ctx, bucketName)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
		}
		return fmt.Errorf("failed to remove bucket: %w", err)
	}

	return nil
}

func (s *Store) PutBlob(ctx context.Context, bucketName, blobName string, reader io.Reader) error {
	if reader == nil {
		return fmt.Errorf("reader is nil")
	}

	// MinIO wants the payload size up front where it can be known;
	// fall back to streaming mode (-1) otherwise.
	var size int64 = -1
	switch r := reader.(type) {
	case *bytes.Reader:
		size = int64(r.Len())
	case *strings.Reader:
		size = int64(r.Len())
	case *bytes.Buffer:
		size = int64(r.Len())
	default:
		if probed := sizeFromSeeker(reader); probed > 0 {
			size = probed
		}
	}

	_, err := s.client.PutObject(ctx, bucketName, blobName, reader, size, minio.PutObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
		}
		return fmt.Errorf("failed to put the object into minio bucket: %w", err)
	}

	return nil
}

func (s *Store) GetBlob(ctx context.Context, bucketName, blobName string) (io.ReadCloser, error) {
	// GetObject defers errors until the first read, so stat first to
	// surface missing blobs as a typed error.
	_, err := s.client.StatObject(ctx, bucketName, blobName, minio.GetObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s/%s", blobstore.ErrBlobNotFound, bucketName, blobName)
		}
		if resp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
		}
		return nil, fmt.Errorf("failed to stat object in minio bucket: %w", err)
	}

	object, err := s.client.GetObject(ctx, bucketName, blobName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get the object from minio bucket: %w", err)
	}

	return object, nil
}

func (s *Store) ListBlobs(ctx context.Context, bucketName string) ([]blobstore.BlobDescriptor, error) {
	var blobs []blobstore.BlobDescriptor
	for object := range s.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			if minio.ToErrorResponse(object.Err).Code == "NoSuchBucket" {
				return nil, fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
			}
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}

		blobs = append(blobs, blobstore.BlobDescriptor{
			Name:         object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}

	return blobs, nil
}

func sizeFromSeeker(reader io.Reader) int64 {
	seeker, ok := reader.(io.Seeker)
	if !ok {
		return 0
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return 0
	}
	return end
}
