package minio_test

import (
	"context"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"

	"blobrun/internal/connection"
	"blobrun/pkg/blobstore"
	"blobrun/pkg/blobstore/minio"
)

var (
	minioEndpoint string
	minioUser     string
	minioPassword string
	testStore     *minio.Store
)

// TestMain boots a MinIO container and connects a Store to it once for
// the whole package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	minioContainer, err := tcminio.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z")
	if err != nil {
		log.Printf("failed to start minio container: %s", err)
		return
	}

	minioEndpoint, err = minioContainer.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("failed to get minio endpoint: %s", err)
	}
	minioUser = minioContainer.Username
	minioPassword = minioContainer.Password

	config := connection.NewAuthConfig()
	config.SetConnectType(connection.ConnectTypeCredential)
	config.SetAccessKey(minioUser)
	config.SetSecretKey(minioPassword)

	testStore, err = minio.Connect(minioEndpoint, config, nil)
	if err != nil {
		log.Fatalf("failed to connect to minio: %s", err)
	}

	code := m.Run()

	if err := testcontainers.TerminateContainer(minioContainer); err != nil {
		log.Printf("failed to terminate minio container: %s", err)
	}

	os.Exit(code)
}

func uniqueBucket(prefix string) string {
	return prefix + uuid.NewString()
}

func TestNew_ClientNil(t *testing.T) {
	store, err := minio.New(nil)

	require.Nil(t, store)
	require.Error(t, err)
	assert.ErrorContains(t, err, "client is nil")
}

func TestConnect_InvalidConnType(t *testing.T) {
	config := connection.NewAuthConfig()
	config.SetConnectType("InvalidConnectionTypeForMinio")

	store, err := minio.Connect(minioEndpoint, config, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid connection type for MinIO:")
	require.Nil(t, store)
}

func TestConnect_MissingCredentials(t *testing.T) {
	config := connection.NewAuthConfig()
	config.SetConnectType(connection.ConnectTypeCredential)

	store, err := minio.Connect(minioEndpoint, config, nil)
	require.Error(t, err)
	assert.EqualError(t, err, "access key and/or secret key not set")
	require.Nil(t, store)
}

func TestStore_ContainerLifecycle(t *testing.T) {
	ctx := context.Background()
	name := uniqueBucket("lifecycle-")

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

	// bucket still holds the object: DeleteContainer must sweep it
	require.NoError(t, testStore.DeleteContainer(ctx, name))
	assert.ErrorIs(t, testStore.DeleteContainer(ctx, name), blobstore.ErrContainerNotFound)
}

func TestStore_GetBlob_NotFound(t *testing.T) {
	ctx := context.Background()
	name := uniqueBucket("getmissing-")

	require.NoError(t, testStore.CreateContainer(ctx, name))
	defer testStore.DeleteContainer(ctx, name)

	_, err := testStore.GetBlob(ctx, name, "absent-blob")
	assert.ErrorIs(t, err, blobstore.ErrBlobNotFound)
}

func TestStore_PutBlob_FromFile(t *testing.T) {
	ctx := context.Background()
	name := uniqueBucket("fromfile-")

	require.NoError(t, testStore.CreateContainer(ctx, name))
	defer testStore.DeleteContainer(ctx, name)

	path := t.TempDir() + "/source.txt"
	require.NoError(t, os.WriteFile(path, []byte("file payload"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	require.NoError(t, testStore.PutBlob(ctx, name, "from-file", file))

	reader, err := testStore.GetBlob(ctx, name, "from-file")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "file payload", string(data))
}
