package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind. *AuthError matches them with
// errors.Is.
var (
	ErrMalformedToken   = errors.New("auth: malformed token")
	ErrMissingClaims    = errors.New("auth: issuer or client id missing from token")
	ErrUnknownRealm     = errors.New("auth: unknown realm")
	ErrRealmUnavailable = errors.New("auth: realm unavailable")
	ErrSignatureInvalid = errors.New("auth: signature invalid")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrTokenNotYetValid = errors.New("auth: token not yet valid")
)

// Resolver and builder errors.
var (
	// ErrRegistrationNotFound is returned by a Resolver that cannot, or will
	// not, produce a Registration. The manager reports it as KindUnknownRealm.
	ErrRegistrationNotFound = errors.New("auth: registration not found")

	// ErrDiscoveryFailed is returned when OIDC discovery could not be
	// completed. It is transient and reported as KindRealmUnavailable.
	ErrDiscoveryFailed = errors.New("auth: discovery failed")

	// ErrInvalidKeySet is returned when a fetched key set has no usable
	// public signing key.
	ErrInvalidKeySet = errors.New("auth: invalid key set")
)

// Kind classifies an authentication failure.
type Kind int

const (
	KindMalformedToken Kind = iota + 1
	KindMissingClaims
	KindUnknownRealm
	KindRealmUnavailable
	KindSignatureInvalid
	KindExpired
	KindNotYetValid
)

// String returns the snake_case name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindMalformedToken:
		return "malformed_token"
	case KindMissingClaims:
		return "missing_claims"
	case KindUnknownRealm:
		return "unknown_realm"
	case KindRealmUnavailable:
		return "realm_unavailable"
	case KindSignatureInvalid:
		return "signature_invalid"
	case KindExpired:
		return "expired"
	case KindNotYetValid:
		return "not_yet_valid"
	default:
		return "unknown"
	}
}

// Sentinel returns the sentinel error for k.
func (k Kind) Sentinel() error {
	switch k {
	case KindMalformedToken:
		return ErrMalformedToken
	case KindMissingClaims:
		return ErrMissingClaims
	case KindUnknownRealm:
		return ErrUnknownRealm
	case KindRealmUnavailable:
		return ErrRealmUnavailable
	case KindSignatureInvalid:
		return ErrSignatureInvalid
	case KindExpired:
		return ErrTokenExpired
	case KindNotYetValid:
		return ErrTokenNotYetValid
	default:
		return nil
	}
}

// AuthError is the failure returned by Manager.Authenticate.
type AuthError struct {
	// Kind classifies the failure.
	Kind Kind

	// Stage is the last stage reached before failing.
	Stage Stage

	// RegistrationID is set once extraction succeeded.
	RegistrationID string

	// Err is the underlying cause, if any.
	Err error
}

// Error returns the error message.
func (e *AuthError) Error() string {
	msg := fmt.Sprintf("authentication failed: kind=%s stage=%s", e.Kind, e.Stage)
	if e.RegistrationID != "" {
		msg += fmt.Sprintf(" registration=%q", e.RegistrationID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *AuthError) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// Retryable reports whether the caller may retry the same token later.
func (e *AuthError) Retryable() bool {
	return e.Kind == KindRealmUnavailable
}

// KindOf returns the Kind of err if it is (or wraps) an *AuthError.
func KindOf(err error) (Kind, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}
