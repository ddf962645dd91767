package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"blobrun/internal/connection"
	"blobrun/pkg/blobstore"
)

// Store implements blobstore.BlobStore on AWS S3 (or any S3-compatible
// endpoint such as LocalStack, via a custom endpoint and path style).
type Store struct {
	client *s3.Client
}

// New wraps an S3 client into a Store, pinging the service with a
// ListBuckets call so misconfiguration fails at construction time.
func New(client *s3.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("failed to create s3 store: client is nil")
	}

	if _, err := client.ListBuckets(context.Background(), nil); err != nil {
		return nil, fmt.Errorf("failed to connect to AWS S3: %w", err)
	}

	return &Store{client: client}, nil
}

// Connect builds a Store from an AuthConfig. Supported connect types:
// withCredential (static access/secret key) and withEnv
// (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY).
func Connect(endpoint string, config *connection.AuthConfig, awsRegion string) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("AuthConfig cannot be nil")
	}

	if endpoint == "default" {
		endpoint = ""
	}
	if awsRegion == "" {
		awsRegion = "no-region"
	}

	accessKey := config.GetAccessKey()
	secretKey := config.GetSecretKey()

	switch config.GetConnectType() {
	case connection.ConnectTypeCredential:
		if accessKey == "" || secretKey == "" {
			return nil, fmt.Errorf("access key and/or secret key not set")
		}
	case connection.ConnectTypeEnv:
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		if accessKey == "" || secretKey == "" {
			return nil, fmt.Errorf("environment variables AWS_ACCESS_KEY_ID and/or AWS_SECRET_ACCESS_KEY are not set")
		}
	default:
		return nil, fmt.Errorf("invalid connection type for AWS S3: %s", config.GetConnectType())
	}

	staticProvider := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(staticProvider),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot load the AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return New(client)
}

// GetClient returns the underlying S3 client.
func (s *Store) GetClient() *s3.Client {
	return s.client
}

func (s *Store) Provider() string {
	return "s3"
}

func (s *Store) CreateContainer(ctx context.Context, bucketName string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerAlreadyExists, bucketName)
		}
		return err
	}

	err = s3.NewBucketExistsWaiter(s.client).Wait(
		ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)}, time.Minute)
	if err != nil {
		return fmt.Errorf("failed waiting for bucket %s to exist: %w", bucketName, err)
	}

	return nil
}

// SetContainerPublicRead attaches a bucket policy that allows
// anonymous GetObject on every key in the bucket.
func (s *Store) SetContainerPublicRead(ctx context.Context, bucketName string) error {
	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Sid": "PublicReadGetObject",
			"Effect": "Allow",
			"Principal": "*",
			"Action": "s3:GetObject",
			"Resource": "arn:aws:s3:::%s/*"
		}]
	}`, bucketName)

	_, err := s.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucketName),
		Policy: aws.String(policy),
	})
	if err != nil {
		if isNoSuchBucket(err) {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
		}
		return fmt.Errorf("s3 put bucket policy: %w", err)
	}

	return nil
}

// DeleteContainer empties the bucket page by page and then deletes it.
// S3 refuses to delete non-empty buckets, so the sweep is mandatory.
func (s *Store) DeleteContainer(ctx context.Context, bucketName string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucketName),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNoSuchBucket(err) {
				return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
			}
			return fmt.Errorf("failed to list objects in bucket %s: %w", bucketName, err)
		}

		if len(page.Contents) == 0 {
			continue
		}

		identifiers := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, object := range page.Contents {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: object.Key})
		}

		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucketName),
			Delete: &types.Delete{Objects: identifiers},
		})
		if err != nil {
			return fmt.Errorf("failed to empty bucket %s: %w", bucketName, err)
		}
	}

	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		if isNoSuchBucket(err) {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
		}
		return err
	}

	err = s3.NewBucketNotExistsWaiter(s.client).Wait(
		ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)}, time.Minute)
	if err != nil {
		return fmt.Errorf("failed waiting for bucket %s to be deleted: %w", bucketName, err)
	}

	return nil
}

func (s *Store) PutBlob(ctx context.Context, bucketName, blobName string, reader io.Reader) error {
	if reader == nil {
		return fmt.Errorf("reader is nil")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(blobName),
		Body:   reader,
	})
	if err != nil {
		if isNoSuchBucket(err) {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
		}
		return fmt.Errorf("s3 put object: %w", err)
	}

	err = s3.NewObjectExistsWaiter(s.client).Wait(
		ctx, &s3.HeadObjectInput{Bucket: aws.String(bucketName), Key: aws.String(blobName)}, time.Minute)
	if err != nil {
		return fmt.Errorf("failed waiting for object %s to exist: %w", blobName, err)
	}

	return nil
}

func (s *Store) GetBlob(ctx context.Context, bucketName, blobName string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(blobName),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s/%s", blobstore.ErrBlobNotFound, bucketName, blobName)
		}
		if isNoSuchBucket(err) {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
		}
		return nil, err
	}

	return result.Body, nil
}

func (s *Store) ListBlobs(ctx context.Context, bucketName string) ([]blobstore.BlobDescriptor, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucketName),
	})

	var blobs []blobstore.BlobDescriptor
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNoSuchBucket(err) {
				return nil, fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, bucketName)
			}
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, object := range page.Contents {
			blobs = append(blobs, blobstore.BlobDescriptor{
				Name:         aws.ToString(object.Key),
				Size:         aws.ToInt64(object.Size),
				LastModified: aws.ToTime(object.LastModified),
			})
		}
	}

	return blobs, nil
}

func isNoSuchBucket(err error) bool {
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return true
	}

	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}
