// Package blobrun runs a scoped blob-storage workflow: provision a
// uniquely named container, upload a local scratch file as a blob, list
// the container, download the blob back, and release the container and
// scratch files on every exit path.
package blobrun

import (
	"context"
	"log/slog"

	"blobrun/internal/scratch"
	"blobrun/pkg/blobstore"
)

// State is one step of the linear workflow.
type State int

const (
	StateStart State = iota
	StateProvisioned
	StateSourceWritten
	StateUploaded
	StateListed
	StateDownloaded
	StateCleanedUp
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateProvisioned:
		return "provisioned"
	case StateSourceWritten:
		return "source-written"
	case StateUploaded:
		return "uploaded"
	case StateListed:
		return "listed"
	case StateDownloaded:
		return "downloaded"
	case StateCleanedUp:
		return "cleaned-up"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a workflow run. Zero values fall back to the
// sample scenario defaults.
type Options struct {
	ContainerPrefix string
	BlobName        string
	Content         string
	Logger          *slog.Logger
}

const (
	defaultContainerPrefix = "quickstart-"
	defaultBlobName        = "sample-blob"
	defaultContent         = "Storage Blob Quickstart."
)

// Workflow drives one end-to-end run against a single store. It owns
// nothing shared: every run provisions its own container and scratch
// directory, so concurrent runs never collide.
type Workflow struct {
	store       blobstore.BlobStore
	provisioner *Provisioner
	transfer    *Transfer
	opts        Options
	log         *slog.Logger
}

// Result records what a run did, which is everything a caller needs for
// reporting: the resource names, the listing, the terminal error (nil
// on success) and any best-effort cleanup failures, kept separate so
// they never mask the primary error.
type Result struct {
	Container   string
	Blob        string
	Listed      []blobstore.BlobDescriptor
	SourcePath  string
	DestPath    string
	History     []State
	Err         error
	CleanupErrs []error
}

// CleanupFailed reports whether releasing resources left anything
// behind. This is the one condition that flips the process exit code.
func (r *Result) CleanupFailed() bool {
	return len(r.CleanupErrs) > 0
}

// New builds a Workflow over the given store.
func New(store blobstore.BlobStore, opts Options) *Workflow {
	if opts.ContainerPrefix == "" {
		opts.ContainerPrefix = defaultContainerPrefix
	}
	if opts.BlobName == "" {
		opts.BlobName = defaultBlobName
	}
	if opts.Content == "" {
		opts.Content = defaultContent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Workflow{
		store:       store,
		provisioner: NewProvisioner(store, opts.Logger),
		transfer:    NewTransfer(store, opts.Logger),
		opts:        opts,
		log:         opts.Logger,
	}
}

// Run executes the workflow once. The cleanup phase runs on every exit
// path: a failure in any step records the error, skips the remaining
// steps, and still releases the container and scratch files.
func (w *Workflow) Run(ctx context.Context) *Result {
	res := &Result{}
	w.enter(res, StateStart)

	var (
		handle *ContainerHandle
		dir    *scratch.Dir
	)

	defer func() {
		if res.Err != nil {
			w.log.Error("workflow failed", "error", res.Err)
			w.enter(res, StateFailed)
		}

		if err := w.provisioner.Release(ctx, handle); err != nil {
			w.log.Error("failed to release container", "container", handle.Name, "error", err)
			res.CleanupErrs = append(res.CleanupErrs, err)
		}
		res.CleanupErrs = append(res.CleanupErrs, dir.Cleanup()...)

		w.enter(res, StateCleanedUp)
	}()

	handle, err := w.provisioner.Acquire(ctx, w.opts.ContainerPrefix)
	if handle != nil {
		res.Container = handle.Name
	}
	if err != nil {
		res.Err = err
		return res
	}
	w.enter(res, StateProvisioned)

	dir, err = scratch.New(w.log)
	if err != nil {
		res.Err = &TransferError{Op: "scratch", Err: err}
		return res
	}
	res.SourcePath, err = dir.CreateSource(w.opts.Content)
	if err != nil {
		res.Err = &TransferError{Op: "scratch", Err: err}
		return res
	}
	w.enter(res, StateSourceWritten)

	blob, err := w.transfer.Upload(ctx, handle, w.opts.BlobName, res.SourcePath)
	if err != nil {
		res.Err = err
		return res
	}
	res.Blob = blob.Name
	w.enter(res, StateUploaded)

	res.Listed, err = w.transfer.List(ctx, handle)
	if err != nil {
		res.Err = err
		return res
	}
	w.enter(res, StateListed)

	res.DestPath = scratch.DestinationPath(res.SourcePath)
	dir.Track(res.DestPath)
	if err := w.transfer.Download(ctx, blob, res.DestPath); err != nil {
		res.Err = err
		return res
	}
	w.enter(res, StateDownloaded)

	return res
}

func (w *Workflow) enter(res *Result, state State) {
	res.History = append(res.History, state)
	w.log.Info("workflow state", "state", state.String())
}
