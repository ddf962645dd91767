package azure

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"blobrun/internal/connection"
	"blobrun/pkg/blobstore"
)

// Store implements blobstore.BlobStore on Azure Blob Storage.
type Store struct {
	client *azblob.Client
}

// New wraps an Azure Blob client into a Store. It pings the service by
// requesting one page of containers, so a dead endpoint or bad
// credential fails here instead of mid-workflow.
func New(client *azblob.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("failed to create azure store: client is nil")
	}

	pager := client.NewListContainersPager(nil)
	if _, err := pager.NextPage(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to azure blob: %w", err)
	}

	return &Store{client: client}, nil
}

// Connect builds a Store from an AuthConfig. Supported connect types:
// withCredential (account name + key), withEnv
// (AZURE_STORAGE_ACCOUNT_NAME / AZURE_STORAGE_ACCOUNT_KEY) and
// withConnectionString. The endpoint overrides the account URL, which
// is how tests point the store at Azurite.
func Connect(endpoint string, config *connection.AuthConfig) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("AuthConfig cannot be nil")
	}

	var client *azblob.Client

	switch config.GetConnectType() {
	case connection.ConnectTypeCredential:
		accountName, accountKey := config.GetAccessKey(), config.GetSecretKey()
		if accountName == "" || accountKey == "" {
			return nil, fmt.Errorf("access key and/or secret key not set")
		}

		var err error
		client, err = sharedKeyClient(endpoint, accountName, accountKey)
		if err != nil {
			return nil, err
		}
	case connection.ConnectTypeEnv:
		accountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
		accountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")
		if accountName == "" || accountKey == "" {
			return nil, fmt.Errorf("environment variables AZURE_STORAGE_ACCOUNT_NAME and/or AZURE_STORAGE_ACCOUNT_KEY are not set")
		}

		var err error
		client, err = sharedKeyClient(endpoint, accountName, accountKey)
		if err != nil {
			return nil, err
		}
	case connection.ConnectTypeConnectionString:
		var err error
		client, err = azblob.NewClientFromConnectionString(config.GetConnectionString(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob Storage client: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid connection type for azure blob: %s", config.GetConnectType())
	}

	return New(client)
}

func sharedKeyClient(endpoint, accountName, accountKey string) (*azblob.Client, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	accountURL := endpoint
	if accountURL == "" || accountURL == "default" {
		accountURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(accountURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob Storage client: %w", err)
	}

	return client, nil
}

// GetClient returns the underlying Azure Blob client.
func (s *Store) GetClient() *azblob.Client {
	return s.client
}

func (s *Store) Provider() string {
	return "azure"
}

func (s *Store) CreateContainer(ctx context.Context, containerName string) error {
	_, err := s.client.CreateContainer(ctx, containerName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerAlreadyExists, containerName)
		}
		return err
	}

	return nil
}

// SetContainerPublicRead opens the container for anonymous blob reads.
func (s *Store) SetContainerPublicRead(ctx context.Context, containerName string) error {
	containerClient := s.client.ServiceClient().NewContainerClient(containerName)

	_, err := containerClient.SetAccessPolicy(ctx, &container.SetAccessPolicyOptions{
		Access: to.Ptr(container.PublicAccessTypeBlob),
	})
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, containerName)
		}
		return fmt.Errorf("azure set container access policy: %w", err)
	}

	return nil
}

// DeleteContainer removes the container and everything in it. Azure
// deletes non-empty containers natively, so no blob sweep is needed.
func (s *Store) DeleteContainer(ctx context.Context, containerName string) error {
	_, err := s.client.DeleteContainer(ctx, containerName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, containerName)
		}
		return err
	}

	return nil
}

func (s *Store) PutBlob(ctx context.Context, containerName, blobName string, reader io.Reader) error {
	if reader == nil {
		return fmt.Errorf("reader is nil")
	}

	_, err := s.client.UploadStream(ctx, containerName, blobName, reader, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, containerName)
		}
		return fmt.Errorf("azure upload stream: %w", err)
	}

	return nil
}

func (s *Store) GetBlob(ctx context.Context, containerName, blobName string) (io.ReadCloser, error) {
	get, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", blobstore.ErrBlobNotFound, containerName, blobName)
		}
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, containerName)
		}
		return nil, err
	}

	return get.NewRetryReader(ctx, &azblob.RetryReaderOptions{}), nil
}

func (s *Store) ListBlobs(ctx context.Context, containerName string) ([]blobstore.BlobDescriptor, error) {
	pager := s.client.NewListBlobsFlatPager(containerName, nil)

	var blobs []blobstore.BlobDescriptor
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil, fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, containerName)
			}
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}

		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			desc := blobstore.BlobDescriptor{Name: *item.Name}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					desc.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					desc.LastModified = *item.Properties.LastModified
				}
			}
			blobs = append(blobs, desc)
		}
	}

	return blobs, nil
}
