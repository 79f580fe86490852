package cache

import "time"

// Policy configures entry lifetime.
type Policy struct {
	// TTL is how long an entry stays valid after Set.
	// Zero means entries never expire and live until deleted.
	TTL time.Duration
}

// NoExpiryPolicy returns a policy whose entries never expire.
func NoExpiryPolicy() Policy {
	return Policy{}
}

// Expires reports whether entries stored under this policy can expire.
func (p Policy) Expires() bool {
	return p.TTL > 0
}

// ExpiresAt returns the expiry time for an entry stored at storedAt.
// It returns the zero time when the policy never expires entries.
func (p Policy) ExpiresAt(storedAt time.Time) time.Time {
	if !p.Expires() {
		return time.Time{}
	}
	return storedAt.Add(p.TTL)
}
