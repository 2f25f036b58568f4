// Package storage declares the object store used for profile images.
package storage

import "context"

// ObjectStore puts and removes binary objects addressed by key.
type ObjectStore interface {
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
