// Package registry owns the in-memory catalog of shared files. The catalog
// is the single source of truth for what the host is currently sharing;
// handlers receive it by injection rather than through package globals so it
// can be tested without the HTTP layer.
package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrNotFound is returned for ids that were never issued or already removed.
	ErrNotFound = errors.New("file not found")
	// ErrEmptyName is returned when an upload carries no filename.
	ErrEmptyName = errors.New("filename is required")
	// ErrCapacity is returned when adding a file would exceed the catalog limit.
	ErrCapacity = errors.New("catalog capacity exhausted")
)

// DefaultMaxBytes caps total catalog content at 2 GiB unless overridden.
const DefaultMaxBytes = 2 << 30

// SharedFile is one uploaded file available for download. Content is owned
// by the catalog and immutable after Add returns.
type SharedFile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MimeType   string `json:"type"`
	Size       int64  `json:"size"`
	Checksum   string `json:"checksum"`
	UploadedAt int64  `json:"uploaded_at"`

	Content []byte `json:"-"`
}

// Catalog maps file ids to shared files. Mutations are serialized by the
// mutex; listing order is insertion order.
type Catalog struct {
	mu       sync.RWMutex
	files    map[string]*SharedFile
	order    []string
	total    int64
	maxBytes int64
}

// New creates an empty catalog limited to maxBytes of total content.
// Pass 0 to use DefaultMaxBytes.
func New(maxBytes int64) *Catalog {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Catalog{
		files:    make(map[string]*SharedFile),
		maxBytes: maxBytes,
	}
}

// Add stores a new file and returns its catalog entry. The id is always
// generated here; client-suggested ids are never trusted for uniqueness.
// Zero-length content is allowed; empty files are shareable.
func (c *Catalog) Add(name, mimeType string, content []byte) (*SharedFile, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	sum := sha3.Sum256(content)
	f := &SharedFile{
		ID:         uuid.New().String(),
		Name:       name,
		MimeType:   mimeType,
		Size:       int64(len(content)),
		Checksum:   hex.EncodeToString(sum[:]),
		UploadedAt: time.Now().Unix(),
		Content:    content,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total+f.Size > c.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes shared, limit %d", ErrCapacity, c.total, c.maxBytes)
	}
	c.files[f.ID] = f
	c.order = append(c.order, f.ID)
	c.total += f.Size
	return f, nil
}

// Get returns the file for id, or ErrNotFound. The returned entry's content
// may be streamed without further locking.
func (c *Catalog) Get(id string) (*SharedFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.files[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return f, nil
}

// List returns a snapshot of all entries in insertion order.
func (c *Catalog) List() []*SharedFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*SharedFile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.files[id])
	}
	return out
}

// Remove deletes the entry for id and frees its content. A second Remove of
// the same id returns ErrNotFound.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.files[id]
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	delete(c.files, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.total -= f.Size
	return nil
}

// Len returns the number of shared files.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// TotalSize returns the summed content size of all shared files.
func (c *Catalog) TotalSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}
