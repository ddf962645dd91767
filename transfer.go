package blobrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"blobrun/pkg/blobstore"
)

// BlobHandle identifies one blob inside a provisioned container. It is
// only valid while the owning container exists.
type BlobHandle struct {
	Container *ContainerHandle
	Name      string
}

// Transfer sequences the blob operations of a run: upload a local file,
// list the container, download a blob back. Strictly sequential, no
// internal retries; collaborator errors surface as TransferError.
type Transfer struct {
	store blobstore.BlobStore
	log   *slog.Logger
}

func NewTransfer(store blobstore.BlobStore, log *slog.Logger) *Transfer {
	if log == nil {
		log = slog.Default()
	}
	return &Transfer{store: store, log: log}
}

// Upload streams the local file at sourcePath into a new blob.
func (t *Transfer) Upload(ctx context.Context, handle *ContainerHandle, blobName, sourcePath string) (*BlobHandle, error) {
	file, err := os.Open(sourcePath)
	if err != nil {
		return nil, &TransferError{Op: "upload", Err: fmt.Errorf("open source file: %w", err)}
	}
	defer file.Close()

	if err := t.store.PutBlob(ctx, handle.Name, blobName, file); err != nil {
		return nil, &TransferError{Op: "upload", Err: err}
	}
	t.log.Info("blob uploaded", "container", handle.Name, "blob", blobName, "source", sourcePath)

	return &BlobHandle{Container: handle, Name: blobName}, nil
}

// List returns a descriptor for every blob currently in the container,
// in the order the provider reports them. The listing reflects the
// upload that preceded it in the same run; no client-side caching sits
// in between.
func (t *Transfer) List(ctx context.Context, handle *ContainerHandle) ([]blobstore.BlobDescriptor, error) {
	descriptors, err := t.store.ListBlobs(ctx, handle.Name)
	if err != nil {
		return nil, &TransferError{Op: "list", Err: err}
	}
	t.log.Info("blobs listed", "container", handle.Name, "count", len(descriptors))

	return descriptors, nil
}

// Download streams the blob's remote content into a local file at
// destPath, overwriting any existing file there.
func (t *Transfer) Download(ctx context.Context, blob *BlobHandle, destPath string) error {
	body, err := t.store.GetBlob(ctx, blob.Container.Name, blob.Name)
	if err != nil {
		return &TransferError{Op: "download", Err: err}
	}
	defer body.Close()

	file, err := os.Create(destPath)
	if err != nil {
		return &TransferError{Op: "download", Err: fmt.Errorf("create destination file: %w", err)}
	}

	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		return &TransferError{Op: "download", Err: fmt.Errorf("write destination file: %w", err)}
	}
	if err := file.Close(); err != nil {
		return &TransferError{Op: "download", Err: fmt.Errorf("close destination file: %w", err)}
	}
	t.log.Info("blob downloaded", "container", blob.Container.Name, "blob", blob.Name, "destination", destPath)

	return nil
}
