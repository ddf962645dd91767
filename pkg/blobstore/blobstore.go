package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors every implementation maps its provider errors onto,
// so callers can use errors.Is without knowing the backend.
var (
	ErrContainerNotFound      = errors.New("container not found")
	ErrContainerAlreadyExists = errors.New("container already exists")
	ErrBlobNotFound           = errors.New("blob not found")
)

// BlobDescriptor describes one blob inside a container.
type BlobDescriptor struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// BlobStore is the container- and blob-scoped contract a storage
// backend has to provide. DeleteContainer removes the container
// together with any blobs still in it, also on backends that only
// delete empty containers natively.
type BlobStore interface {
	Provider() string
	CreateContainer(ctx context.Context, container string) error
	SetContainerPublicRead(ctx context.Context, container string) error
	DeleteContainer(ctx context.Context, container string) error
	PutBlob(ctx context.Context, container string, blobName string, reader io.Reader) error
	GetBlob(ctx context.Context, container string, blobName string) (io.ReadCloser, error)
	ListBlobs(ctx context.Context, container string) ([]BlobDescriptor, error)
}
