package azure_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/azurite"

	"blobrun"
	"blobrun/internal/connection"
	"blobrun/internal/logger"
	"blobrun/internal/scratch"
	"blobrun/pkg/blobstore"
	"blobrun/pkg/blobstore/azure"
)

var (
	azuriteEndpoint         string
	azuriteConnectionString string
	testStore               *azure.Store
)

// TestMain boots an Azurite container and connects a Store to it once
// for the whole package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	azuriteContainer, err := azurite.Run(
		ctx,
		"mcr.microsoft.com/azure-storage/azurite:3.33.0",
		azurite.WithInMemoryPersistence(64),
	)
	if err != nil {
		log.Printf("failed to start azurite container: %s", err)
		return
	}

	azuriteEndpoint = fmt.Sprintf("%s/%s", azuriteContainer.MustServiceURL(ctx, azurite.BlobService), azurite.AccountName)
	azuriteConnectionString = fmt.Sprintf(
		"DefaultEndpointsProtocol=http;AccountName=%s;AccountKey=%s;BlobEndpoint=%s;",
		azurite.AccountName, azurite.AccountKey, azuriteEndpoint)

	client, err := azblob.NewClientFromConnectionString(azuriteConnectionString, nil)
	if err != nil {
		log.Fatalf("failed to create the Azurite client: %s", err)
	}

	testStore, err = azure.New(client)
	if err != nil {
		log.Fatalf("failed to create azure store: %s", err)
	}

	code := m.Run()

	if err := testcontainers.TerminateContainer(azuriteContainer); err != nil {
		log.Printf("failed to terminate azurite container: %s", err)
	}

	os.Exit(code)
}

func uniqueContainer(prefix string) string {
	return prefix + uuid.NewString()
}

func TestNew_ClientNil(t *testing.T) {
	store, err := azure.New(nil)

	require.Nil(t, store)
	require.Error(t, err)
	assert.ErrorContains(t, err, "client is nil")
}

func TestConnect_InvalidConnType(t *testing.T) {
	config := connection.NewAuthConfig()
	config.SetConnectType("InvalidConnectionTypeForAzure")

	store, err := azure.Connect(azuriteEndpoint, config)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid connection type for azure blob:")
	require.Nil(t, store)
}

func TestConnect_MissingCredentials(t *testing.T) {
	config := connection.NewAuthConfig()
	config.SetConnectType(connection.ConnectTypeCredential)

	store, err := azure.Connect(azuriteEndpoint, config)
	require.Error(t, err)
	assert.EqualError(t, err, "access key and/or secret key not set")
	require.Nil(t, store)
}

func TestConnect_WithConnectionString(t *testing.T) {
	config := connection.NewAuthConfig()
	config.SetConnectType(connection.ConnectTypeConnectionString)
	config.SetConnectionString(azuriteConnectionString)

	store, err := azure.Connect(azuriteEndpoint, config)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Equal(t, "azure", store.Provider())
}

func TestStore_ContainerLifecycle(t *testing.T) {
	ctx := context.Background()
	name := uniqueContainer("lifecycle-")

	require.NoError(t, testStore.CreateContainer(ctx, name))

	err := testStore.CreateContainer(ctx, name)
	assert.ErrorIs(t, err, blobstore.ErrContainerAlreadyExists)

	require.NoError(t, testStore.SetContainerPublicRead(ctx, name))

	listed, err := testStore.ListBlobs(ctx, name)
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, testStore.PutBlob(ctx, name, "sample-blob", strings.NewReader("payload")))

	listed, err = testStore.ListBlobs(ctx, name)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "sample-blob", listed[0].Name)
	assert.Equal(t, int64(len("payload")), listed[0].Size)

	reader, err := testStore.GetBlob(ctx, name, "sample-blob")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "payload", string(data))

	// non-empty containers delete in one call on Azure
	require.NoError(t, testStore.DeleteContainer(ctx, name))
	assert.ErrorIs(t, testStore.DeleteContainer(ctx, name), blobstore.ErrContainerNotFound)
}

func TestStore_SetContainerPublicRead_MissingContainer(t *testing.T) {
	err := testStore.SetContainerPublicRead(context.Background(), uniqueContainer("absent-"))
	assert.ErrorIs(t, err, blobstore.ErrContainerNotFound)
}

func TestStore_GetBlob_NotFound(t *testing.T) {
	ctx := context.Background()
	name := uniqueContainer("getmissing-")

	require.NoError(t, testStore.CreateContainer(ctx, name))
	defer testStore.DeleteContainer(ctx, name)

	_, err := testStore.GetBlob(ctx, name, "absent-blob")
	assert.ErrorIs(t, err, blobstore.ErrBlobNotFound)
}

// TestScenario_QuickstartRoundTrip walks the canonical scenario step by
// step against Azurite: provision, write source, upload, list,
// download, verify bytes, release, cleanup.
func TestScenario_QuickstartRoundTrip(t *testing.T) {
	ctx := context.Background()
	log := logger.NewWithWriter(io.Discard)

	provisioner := blobrun.NewProvisioner(testStore, log)
	transfer := blobrun.NewTransfer(testStore, log)

	handle, err := provisioner.Acquire(ctx, "quickstart-")
	require.NoError(t, err)

	dir, err := scratch.New(log)
	require.NoError(t, err)
	sourcePath, err := dir.CreateSource("Storage Blob Quickstart.")
	require.NoError(t, err)

	blob, err := transfer.Upload(ctx, handle, "sample-blob", sourcePath)
	require.NoError(t, err)

	listed, err := transfer.List(ctx, handle)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "sample-blob", listed[0].Name)

	destPath := scratch.DestinationPath(sourcePath)
	dir.Track(destPath)
	require.NoError(t, transfer.Download(ctx, blob, destPath))

	downloaded, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "Storage Blob Quickstart.", string(downloaded))

	require.NoError(t, provisioner.Release(ctx, handle))
	_, err = testStore.ListBlobs(ctx, handle.Name)
	assert.ErrorIs(t, err, blobstore.ErrContainerNotFound, "container should no longer exist")

	assert.Empty(t, dir.Cleanup())
	for _, path := range []string{sourcePath, destPath} {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "expected %s to be gone", path)
	}
}

// TestWorkflow_EndToEnd runs the whole driver against Azurite.
func TestWorkflow_EndToEnd(t *testing.T) {
	workflow := blobrun.New(testStore, blobrun.Options{
		Logger: logger.NewWithWriter(io.Discard),
	})

	res := workflow.Run(context.Background())

	require.NoError(t, res.Err)
	assert.False(t, res.CleanupFailed())
	assert.Equal(t, blobrun.StateCleanedUp, res.History[len(res.History)-1])

	_, err := testStore.ListBlobs(context.Background(), res.Container)
	assert.ErrorIs(t, err, blobstore.ErrContainerNotFound)
}
