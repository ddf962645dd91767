package blobrun

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports that the workflow is not configured to run:
// nothing was created and no cleanup is needed.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("not configured: %s", e.Reason)
}

// ProvisionError reports a failure while creating the container or
// setting its access policy. It is surfaced once, never retried.
type ProvisionError struct {
	Op        string
	Container string
	Err       error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s %q: %v", e.Op, e.Container, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// TransferError reports a failed upload, list, download, or the local
// file I/O feeding them.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// CleanupError aggregates best-effort cleanup failures. It is reported
// separately from the primary workflow error so a transient cleanup
// failure never masks the error that routed the run into cleanup.
type CleanupError struct {
	Errs []error
}

func (e *CleanupError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("cleanup: %s", strings.Join(msgs, "; "))
}

func (e *CleanupError) Unwrap() []error {
	return e.Errs
}

// IsNotConfigured reports whether err is the missing-configuration
// early-exit outcome rather than an operational failure.
func IsNotConfigured(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
