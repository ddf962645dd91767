package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"blobrun"
	"blobrun/cmd/blobrun/config"
	"blobrun/pkg/blobstore"
	"blobrun/pkg/blobstore/memory"
)

func newRootCmd(log *slog.Logger) *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "blobrun",
		Short: "Run a scoped blob-storage workflow against a cloud provider",
		Long: `blobrun provisions a uniquely named container, uploads a local scratch
file as a blob, lists the container, downloads the blob back, and then
deletes the container and scratch files -- also when a step fails.

Credentials come from the environment: AZURE_STORAGE_CONNECTION_STRING
for the azure provider, AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY for s3,
MINIO_ACCESS_KEY/MINIO_SECRET_KEY for minio. A missing credential exits
cleanly without touching anything.

Exit code is 0 when the run completed and everything was cleaned up,
including runs where a transfer step failed (the failure is reported on
stderr). A non-zero exit means cleanup itself left resources behind.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := buildStore(cfg)
			if err != nil {
				if blobrun.IsNotConfigured(err) {
					log.Info("nothing to do", "reason", err.Error())
					fmt.Println(err.Error())
					return nil
				}
				// No resources exist yet; report and complete.
				log.Error("cannot run workflow", "provider", cfg.Provider, "error", err)
				return nil
			}

			workflow := blobrun.New(store, blobrun.Options{
				ContainerPrefix: cfg.ContainerPrefix,
				BlobName:        cfg.BlobName,
				Content:         cfg.Content,
				Logger:          log,
			})

			res := workflow.Run(cmd.Context())
			if res.CleanupFailed() {
				return &blobrun.CleanupError{Errs: res.CleanupErrs}
			}
			if res.Err == nil {
				log.Info("workflow completed",
					"provider", store.Provider(),
					"container", res.Container,
					"blob", res.Blob,
					"downloaded", res.DestPath)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Provider, "provider", cfg.Provider, "storage provider: azure, s3, minio or memory")
	flags.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "override the provider endpoint (Azurite, LocalStack, local MinIO)")
	flags.StringVar(&cfg.Region, "region", cfg.Region, "AWS region for the s3 provider")
	flags.StringVar(&cfg.ContainerPrefix, "prefix", cfg.ContainerPrefix, "container name prefix; a unique token is appended")
	flags.StringVar(&cfg.BlobName, "blob", cfg.BlobName, "name of the blob to upload")
	flags.StringVar(&cfg.Content, "content", cfg.Content, "content written to the scratch source file")

	return cmd
}

func buildStore(cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.Provider {
	case "azure":
		if cfg.ConnectionString == "" {
			return nil, &blobrun.ConfigError{
				Reason: fmt.Sprintf("set the %s environment variable to run against Azure Blob Storage", config.EnvConnectionString),
			}
		}
		return blobrun.NewAzBlobConnection(cfg.Endpoint, blobrun.ConnectionOptions{
			ConnectionMethod: blobrun.ConnectWithConnectionString(cfg.ConnectionString),
		})
	case "s3":
		return blobrun.NewS3Connection(cfg.Endpoint, blobrun.ConnectionOptions{
			ConnectionMethod: blobrun.ConnectWithEnvCredentials(),
		}, cfg.Region)
	case "minio":
		return blobrun.NewMinIOConnection(cfg.Endpoint, blobrun.ConnectionOptions{
			ConnectionMethod: blobrun.ConnectWithEnvCredentials(),
		}, nil)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
