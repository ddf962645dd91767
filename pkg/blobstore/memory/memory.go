package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"blobrun/pkg/blobstore"
)

type blobEntry struct {
	data         []byte
	lastModified time.Time
}

// Store is an in-process blobstore.BlobStore implementation used by the
// workflow tests and the CLI dry-run mode. Containers and blobs live in
// a nested map guarded by an RWMutex; data is copied on write and read
// so callers cannot mutate internal buffers.
type Store struct {
	mu         sync.RWMutex
	containers map[string]map[string]blobEntry
	publicRead map[string]bool
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		containers: make(map[string]map[string]blobEntry),
		publicRead: make(map[string]bool),
	}
}

func (s *Store) Provider() string {
	return "memory"
}

func (s *Store) CreateContainer(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.containers[container]; exists {
		return fmt.Errorf("%w: %s", blobstore.ErrContainerAlreadyExists, container)
	}
	s.containers[container] = make(map[string]blobEntry)

	return nil
}

func (s *Store) SetContainerPublicRead(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.containers[container]; !exists {
		return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, container)
	}
	s.publicRead[container] = true

	return nil
}

// PublicRead reports whether the container has been opened for
// anonymous reads. Test hook; real providers expose this server-side.
func (s *Store) PublicRead(container string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publicRead[container]
}

func (s *Store) DeleteContainer(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.containers[container]; !exists {
		return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, container)
	}
	delete(s.containers, container)
	delete(s.publicRead, container)

	return nil
}

// ContainerExists reports whether the container is present. Test hook.
func (s *Store) ContainerExists(container string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.containers[container]
	return exists
}

func (s *Store) PutBlob(_ context.Context, container, blobName string, reader io.Reader) error {
	if reader == nil {
		return fmt.Errorf("reader is nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read input stream: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blobs, exists := s.containers[container]
	if !exists {
		return fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, container)
	}
	blobs[blobName] = blobEntry{data: data, lastModified: time.Now()}

	return nil
}

func (s *Store) GetBlob(_ context.Context, container, blobName string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blobs, exists := s.containers[container]
	if !exists {
		return nil, fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, container)
	}
	entry, exists := blobs[blobName]
	if !exists {
		return nil, fmt.Errorf("%w: %s/%s", blobstore.ErrBlobNotFound, container, blobName)
	}

	cp := make([]byte, len(entry.data))
	copy(cp, entry.data)

	return io.NopCloser(bytes.NewReader(cp)), nil
}

func (s *Store) ListBlobs(_ context.Context, container string) ([]blobstore.BlobDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blobs, exists := s.containers[container]
	if !exists {
		return nil, fmt.Errorf("%w: %s", blobstore.ErrContainerNotFound, container)
	}

	descriptors := make([]blobstore.BlobDescriptor, 0, len(blobs))
	for name, entry := range blobs {
		descriptors = append(descriptors, blobstore.BlobDescriptor{
			Name:         name,
			Size:         int64(len(entry.data)),
			LastModified: entry.lastModified,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})

	return descriptors, nil
}
