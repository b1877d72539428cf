// Package persist stores the agent's durable documents (desires, memories,
// persona) as named JSON blobs. Every write is atomic: a reader never
// observes a partially written document.
package persist

import "context"

// Store is a named-document store.
type Store interface {
	// Load reads the named document into v. A missing document returns an
	// error wrapping core.ErrNotFound.
	Load(ctx context.Context, name string, v any) error

	// Save writes v as the named document. The write is atomic and retried
	// once on failure; a second failure returns an error wrapping
	// core.ErrPersistence.
	Save(ctx context.Context, name string, v any) error

	// Close releases the store's resources.
	Close() error
}
