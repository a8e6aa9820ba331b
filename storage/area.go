// Package storage provides the two places a session can live: a durable area that survives a
// restart of the host process and a volatile area scoped to the running process.
package storage

import "context"

// Area is a string key/value capability. Remove must be idempotent.
type Area interface {
	// Get returns the value for key; ok is false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set writes value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error
	Remove(ctx context.Context, key string) error
}
