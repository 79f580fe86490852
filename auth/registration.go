package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonwraymond/realmgate/cache"
)

// Keycloak endpoint convention, relative to the issuer URI. It is the only
// realm-onboarding policy the convention resolver applies.
const (
	DefaultTokenPath = "/protocol/openid-connect/token"
	DefaultJWKSPath  = "/protocol/openid-connect/certs"
)

// Registration is the resolved trust record for one issuer and client.
// It is immutable once built.
type Registration struct {
	ID        string
	ClientID  string
	IssuerURI string
	TokenURI  string
	JWKSetURI string
}

// Resolver maps a registration ID to a Registration.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Idempotency: resolving the same ID twice yields equal registrations.
//   - Errors: a realm that cannot or must not be trusted is reported with an
//     error wrapping ErrRegistrationNotFound. Any other error is treated as
//     transient.
type Resolver interface {
	Resolve(ctx context.Context, registrationID string) (Registration, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, registrationID string) (Registration, error)

// Resolve calls f(ctx, registrationID).
func (f ResolverFunc) Resolve(ctx context.Context, registrationID string) (Registration, error) {
	return f(ctx, registrationID)
}

// SplitRegistrationID splits id at the last "::". Issuers may themselves
// contain "::" (IPv6 literals); client ids may not.
func SplitRegistrationID(id string) (issuer, clientID string, ok bool) {
	i := strings.LastIndex(id, RegistrationIDSeparator)
	if i < 0 {
		return "", "", false
	}
	issuer, clientID = id[:i], id[i+len(RegistrationIDSeparator):]
	if strings.TrimSpace(issuer) == "" || strings.TrimSpace(clientID) == "" {
		return "", "", false
	}
	return issuer, clientID, true
}

// IssuerPolicy is the trust gate applied before any network call is made on
// behalf of an issuer. An entry ending in "*" matches by prefix; any other
// entry must match exactly.
type IssuerPolicy struct {
	// Trusted issuers. Empty trusts every issuer not denied.
	Trusted []string

	// Denied issuers. Checked first.
	Denied []string
}

// Allows reports whether issuer passes the gate.
func (p IssuerPolicy) Allows(issuer string) bool {
	if matchAny(p.Denied, issuer) {
		return false
	}
	return len(p.Trusted) == 0 || matchAny(p.Trusted, issuer)
}

func matchAny(patterns []string, issuer string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(issuer, prefix) {
				return true
			}
			continue
		}
		if p == issuer {
			return true
		}
	}
	return false
}

// ConventionConfig configures a ConventionResolver.
type ConventionConfig struct {
	// TokenPath is appended to the issuer to form the token endpoint.
	// Default: DefaultTokenPath
	TokenPath string

	// JWKSPath is appended to the issuer to form the key-set endpoint.
	// Default: DefaultJWKSPath
	JWKSPath string

	// AllowInsecureHTTP accepts http:// issuers. Only for local testing.
	AllowInsecureHTTP bool

	// Policy is the issuer trust gate.
	Policy IssuerPolicy
}

// ConventionResolver derives endpoints from the issuer URI. It keeps no
// state and makes no network calls.
type ConventionResolver struct {
	config ConventionConfig
}

// NewConventionResolver creates a convention resolver.
func NewConventionResolver(config ConventionConfig) *ConventionResolver {
	if config.TokenPath == "" {
		config.TokenPath = DefaultTokenPath
	}
	if config.JWKSPath == "" {
		config.JWKSPath = DefaultJWKSPath
	}
	return &ConventionResolver{config: config}
}

// Resolve builds the Registration for registrationID.
func (r *ConventionResolver) Resolve(_ context.Context, registrationID string) (Registration, error) {
	issuer, clientID, err := admitRegistrationID(registrationID, r.config.AllowInsecureHTTP, r.config.Policy)
	if err != nil {
		return Registration{}, err
	}

	base := strings.TrimRight(issuer, "/")
	return Registration{
		ID:        registrationID,
		ClientID:  clientID,
		IssuerURI: issuer,
		TokenURI:  base + r.config.TokenPath,
		JWKSetURI: base + r.config.JWKSPath,
	}, nil
}

// admitRegistrationID runs every check that does not need the network.
func admitRegistrationID(id string, allowInsecure bool, policy IssuerPolicy) (issuer, clientID string, err error) {
	if err := cache.ValidateKey(id); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrRegistrationNotFound, err)
	}

	issuer, clientID, ok := SplitRegistrationID(id)
	if !ok {
		return "", "", fmt.Errorf("%w: malformed registration id", ErrRegistrationNotFound)
	}
	if err := validateEndpoint(issuer, allowInsecure); err != nil {
		return "", "", fmt.Errorf("%w: issuer: %w", ErrRegistrationNotFound, err)
	}
	if !policy.Allows(issuer) {
		return "", "", fmt.Errorf("%w: issuer %q is not trusted", ErrRegistrationNotFound, issuer)
	}
	return issuer, clientID, nil
}

// validateEndpoint requires an absolute https URL with a host and without
// credentials, query or fragment.
func validateEndpoint(raw string, allowInsecure bool) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	switch {
	case u.Scheme == "https":
	case u.Scheme == "http" && allowInsecure:
	default:
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	if u.Host == "" || u.Hostname() == "" {
		return fmt.Errorf("missing host")
	}
	if u.User != nil {
		return fmt.Errorf("userinfo not allowed")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("query or fragment not allowed")
	}
	return nil
}

var _ Resolver = (*ConventionResolver)(nil)
