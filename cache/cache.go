package cache

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Store is a typed key/value cache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns the zero value and false on miss.
type Store[K comparable, V any] interface {
	// Get returns the cached value for key.
	Get(key K) (V, bool)

	// Set stores value under key, replacing any previous entry.
	Set(key K, value V)

	// Delete removes key. Idempotent.
	Delete(key K)

	// Len reports the number of live entries.
	Len() int
}

// ValidateKey checks that a string key is safe to use as a cache key.
// Keys derived from untrusted input (issuer URLs, client ids) must pass
// this check before they are stored.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
