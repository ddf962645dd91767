package config

import (
	"github.com/spf13/viper"
)

// EnvConnectionString is the single credential the azure provider
// reads from the process environment.
const EnvConnectionString = "AZURE_STORAGE_CONNECTION_STRING"

// Config is everything a workflow run needs from the environment,
// resolved once at startup. No package-level state: the loaded struct
// is passed down explicitly.
type Config struct {
	Provider         string
	ConnectionString string
	Endpoint         string
	Region           string
	ContainerPrefix  string
	BlobName         string
	Content          string
}

// Load resolves configuration from the environment with defaults for
// the sample scenario. BLOBRUN_* variables configure the run shape,
// AZURE_STORAGE_CONNECTION_STRING and AWS_REGION keep their
// conventional names.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("BLOBRUN")
	v.AutomaticEnv()

	_ = v.BindEnv("connection_string", EnvConnectionString)
	_ = v.BindEnv("region", "AWS_REGION")

	v.SetDefault("provider", "azure")
	v.SetDefault("endpoint", "")
	v.SetDefault("prefix", "quickstart-")
	v.SetDefault("blob", "sample-blob")
	v.SetDefault("content", "Storage Blob Quickstart.")

	return &Config{
		Provider:         v.GetString("provider"),
		ConnectionString: v.GetString("connection_string"),
		Endpoint:         v.GetString("endpoint"),
		Region:           v.GetString("region"),
		ContainerPrefix:  v.GetString("prefix"),
		BlobName:         v.GetString("blob"),
		Content:          v.GetString("content"),
	}
}
