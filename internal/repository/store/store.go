// Package store provides key/value persistence for viewer settings.
package store

// Store persists raw string values by key. Get reports whether the key was
// present; a missing key is not an error.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}
