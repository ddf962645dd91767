package main

import (
	"errors"
	"os"

	"blobrun"
	"blobrun/internal/logger"
)

func main() {
	log := logger.New()

	if err := newRootCmd(log).Execute(); err != nil {
		var cleanupErr *blobrun.CleanupError
		if errors.As(err, &cleanupErr) {
			log.Error("cleanup left resources behind", "error", err)
			os.Exit(1)
		}
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}
