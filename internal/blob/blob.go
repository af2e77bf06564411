// Package blob provides the object store collaborator used for raw document
// bytes. The ingestion pipeline treats it as an opaque byte source/sink
// addressed by a bucket/key locator; nothing here inspects content.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates no object exists at the locator.
var ErrNotFound = errors.New("blob not found")

// Locator addresses one stored object.
type Locator struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// String renders the locator as bucket/key.
func (l Locator) String() string {
	return l.Bucket + "/" + l.Key
}

// Validate rejects empty or traversal-prone locators.
func (l Locator) Validate() error {
	if l.Bucket == "" || l.Key == "" {
		return fmt.Errorf("locator requires bucket and key, got %q/%q", l.Bucket, l.Key)
	}
	for _, part := range []string{l.Bucket, l.Key} {
		if strings.Contains(part, "..") || strings.HasPrefix(part, "/") {
			return fmt.Errorf("locator component %q is not a clean relative path", part)
		}
	}
	return nil
}

// Store is the object store collaborator.
type Store interface {
	// Download returns the raw bytes stored at the locator.
	Download(ctx context.Context, loc Locator) ([]byte, error)

	// Upload stores data at the locator, overwriting any prior object.
	Upload(ctx context.Context, loc Locator, data []byte, contentType string) error
}
