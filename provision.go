package blobrun

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"blobrun/pkg/blobstore"
)

// ContainerHandle identifies a container owned by one workflow run.
type ContainerHandle struct {
	Name string
}

// Provisioner acquires a uniquely named container and guarantees it can
// be released on every exit path.
type Provisioner struct {
	store blobstore.BlobStore
	log   *slog.Logger
}

func NewProvisioner(store blobstore.BlobStore, log *slog.Logger) *Provisioner {
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{store: store, log: log}
}

// Acquire creates a container named prefix plus a fresh UUID token and
// opens it for public blob reads. The UUID keeps concurrent runs from
// ever sharing a name. If the policy step fails after the container was
// created, the handle is returned together with the error so the caller
// can still release it.
func (p *Provisioner) Acquire(ctx context.Context, prefix string) (*ContainerHandle, error) {
	name := prefix + uuid.NewString()

	if err := p.store.CreateContainer(ctx, name); err != nil {
		return nil, &ProvisionError{Op: "create container", Container: name, Err: err}
	}
	handle := &ContainerHandle{Name: name}
	p.log.Info("container created", "container", name, "provider", p.store.Provider())

	if err := p.store.SetContainerPublicRead(ctx, name); err != nil {
		return handle, &ProvisionError{Op: "set public read", Container: name, Err: err}
	}

	return handle, nil
}

// Release deletes the container. A nil handle is a no-op, so it is safe
// to call unconditionally even when Acquire never completed, and a
// container already gone counts as released.
func (p *Provisioner) Release(ctx context.Context, handle *ContainerHandle) error {
	if handle == nil {
		return nil
	}

	err := p.store.DeleteContainer(ctx, handle.Name)
	if err != nil {
		if errors.Is(err, blobstore.ErrContainerNotFound) {
			return nil
		}
		return err
	}
	p.log.Info("container deleted", "container", handle.Name)

	return nil
}
