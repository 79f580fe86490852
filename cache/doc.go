// Package cache provides small in-process caches keyed by string identifiers.
//
// Memory is a generic store with lock-free reads for populated keys and an
// optional TTL policy. It backs the per-realm verifier cache and the OIDC
// discovery memo in package auth.
package cache
