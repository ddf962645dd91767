package blobrun

import (
	"fmt"

	miniosdk "github.com/minio/minio-go/v7"

	"blobrun/internal/connection"
	"blobrun/pkg/blobstore/azure"
	"blobrun/pkg/blobstore/minio"
	"blobrun/pkg/blobstore/s3"
)

// ConnectionOptions holds the options for creating a backend
// connection. ConnectionMethod comes from one of the ConnectWith*
// helpers below.
type ConnectionOptions struct {
	ConnectionMethod connectionFunc
}

type connectionFunc *connection.AuthConfig

// NewAzBlobConnection creates an Azure Blob Storage backed store.
// Valid connection methods: ConnectWithCredentials,
// ConnectWithEnvCredentials, ConnectWithConnectionString.
func NewAzBlobConnection(endpoint string, connectionOptions ConnectionOptions) (*azure.Store, error) {
	var authConfig *connection.AuthConfig = connectionOptions.ConnectionMethod
	if authConfig == nil {
		return nil, fmt.Errorf("connectionMethod cannot be nil")
	}

	if authConfig.GetConnectType() != connection.ConnectTypeCredential &&
		authConfig.GetConnectType() != connection.ConnectTypeEnv &&
		authConfig.GetConnectType() != connection.ConnectTypeConnectionString {
		return nil, fmt.Errorf("invalid connection method for Azure Blob; " +
			"use: ConnectWithCredentials, ConnectWithEnvCredentials or ConnectWithConnectionString")
	}

	return azure.Connect(endpoint, authConfig)
}

// NewS3Connection creates an AWS S3 backed store. Valid connection
// methods: ConnectWithCredentials, ConnectWithEnvCredentials.
func NewS3Connection(endpoint string, connectionOptions ConnectionOptions, awsRegion string) (*s3.Store, error) {
	var authConfig *connection.AuthConfig = connectionOptions.ConnectionMethod
	if authConfig == nil {
		return nil, fmt.Errorf("connectionMethod cannot be nil")
	}

	if authConfig.GetConnectType() != connection.ConnectTypeCredential &&
		authConfig.GetConnectType() != connection.ConnectTypeEnv {
		return nil, fmt.Errorf("invalid connection method for AWS S3; " +
			"use: ConnectWithCredentials or ConnectWithEnvCredentials")
	}

	return s3.Connect(endpoint, authConfig, awsRegion)
}

// NewMinIOConnection creates a MinIO backed store. Valid connection
// methods: ConnectWithCredentials, ConnectWithEnvCredentials.
func NewMinIOConnection(endpoint string, connectionOptions ConnectionOptions, minioOptions *miniosdk.Options) (*minio.Store, error) {
	var authConfig *connection.AuthConfig = connectionOptions.ConnectionMethod
	if authConfig == nil {
		return nil, fmt.Errorf("connectionMethod cannot be nil")
	}

	if authConfig.GetConnectType() != connection.ConnectTypeCredential &&
		authConfig.GetConnectType() != connection.ConnectTypeEnv {
		return nil, fmt.Errorf("invalid connection method for MinIO; " +
			"use: ConnectWithCredentials or ConnectWithEnvCredentials")
	}

	return minio.Connect(endpoint, authConfig, minioOptions)
}

// ConnectWithCredentials returns a connectionFunc configured with the
// provided static credentials.
func ConnectWithCredentials(identity string, secretAccessKey string) connectionFunc {
	authConfig := connection.NewAuthConfig()
	authConfig.SetConnectType(connection.ConnectTypeCredential)
	authConfig.SetAccessKey(identity)
	authConfig.SetSecretKey(secretAccessKey)
	return authConfig
}

// ConnectWithEnvCredentials returns a connectionFunc configured to use
// the backend's environment credentials.
func ConnectWithEnvCredentials() connectionFunc {
	authConfig := connection.NewAuthConfig()
	authConfig.SetConnectType(connection.ConnectTypeEnv)
	return authConfig
}

// ConnectWithConnectionString returns a connectionFunc configured with
// the given connection string.
func ConnectWithConnectionString(connectionString string) connectionFunc {
	authConfig := connection.NewAuthConfig()
	authConfig.SetConnectType(connection.ConnectTypeConnectionString)
	authConfig.SetConnectionString(connectionString)
	return authConfig
}
