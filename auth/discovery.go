package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/realmgate/cache"
)

// DiscoveryConfig configures a DiscoveryResolver.
type DiscoveryConfig struct {
	// HTTPClient performs discovery requests. Default: http.DefaultClient
	HTTPClient *http.Client

	// Fetch guards discovery requests. Default: NewFetchGuard(FetchConfig{})
	Fetch *FetchGuard

	// AllowInsecureHTTP accepts http:// issuers and endpoints.
	AllowInsecureHTTP bool

	// Policy is the issuer trust gate, applied before discovery.
	Policy IssuerPolicy

	// TTL bounds how long discovered endpoints are reused. Zero keeps them
	// for the process lifetime.
	TTL time.Duration
}

// endpoints is what discovery learns about one issuer.
type endpoints struct {
	token string
	jwks  string
}

// DiscoveryResolver learns a realm's endpoints from its OpenID Provider
// metadata (/.well-known/openid-configuration). Results are memoized per
// issuer and concurrent discoveries of one issuer share a request.
type DiscoveryResolver struct {
	config DiscoveryConfig
	known  *cache.Memory[string, endpoints]
	group  singleflight.Group
}

// NewDiscoveryResolver creates a discovery resolver.
func NewDiscoveryResolver(config DiscoveryConfig) *DiscoveryResolver {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Fetch == nil {
		config.Fetch = NewFetchGuard(FetchConfig{})
	}
	return &DiscoveryResolver{
		config: config,
		known:  cache.NewMemory[string, endpoints](cache.Policy{TTL: config.TTL}),
	}
}

// Resolve returns the Registration for registrationID. Failing trust checks
// wrap ErrRegistrationNotFound; failing discovery wraps ErrDiscoveryFailed.
func (r *DiscoveryResolver) Resolve(ctx context.Context, registrationID string) (Registration, error) {
	issuer, clientID, err := admitRegistrationID(registrationID, r.config.AllowInsecureHTTP, r.config.Policy)
	if err != nil {
		return Registration{}, err
	}

	ep, err := r.discover(ctx, issuer)
	if err != nil {
		return Registration{}, err
	}

	return Registration{
		ID:        registrationID,
		ClientID:  clientID,
		IssuerURI: issuer,
		TokenURI:  ep.token,
		JWKSetURI: ep.jwks,
	}, nil
}

func (r *DiscoveryResolver) discover(ctx context.Context, issuer string) (endpoints, error) {
	if ep, ok := r.known.Get(issuer); ok {
		return ep, nil
	}

	ch := r.group.DoChan(issuer, func() (any, error) {
		if ep, ok := r.known.Get(issuer); ok {
			return ep, nil
		}
		ep, err := r.fetch(context.WithoutCancel(ctx), issuer)
		if err != nil {
			return nil, err
		}
		r.known.Set(issuer, ep)
		return ep, nil
	})

	select {
	case <-ctx.Done():
		return endpoints{}, fmt.Errorf("%w: %w", ErrDiscoveryFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return endpoints{}, res.Err
		}
		return res.Val.(endpoints), nil
	}
}

func (r *DiscoveryResolver) fetch(ctx context.Context, issuer string) (endpoints, error) {
	var provider *oidc.Provider
	err := r.config.Fetch.Do(ctx, issuer, func(ctx context.Context) error {
		var err error
		provider, err = oidc.NewProvider(oidc.ClientContext(ctx, r.config.HTTPClient), issuer)
		return err
	})
	if err != nil {
		return endpoints{}, fmt.Errorf("%w: %s: %w", ErrDiscoveryFailed, issuer, err)
	}

	var meta struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return endpoints{}, fmt.Errorf("%w: %s: invalid metadata: %w", ErrDiscoveryFailed, issuer, err)
	}
	if strings.TrimSpace(meta.JWKSURI) == "" {
		return endpoints{}, fmt.Errorf("%w: %s: metadata has no jwks_uri", ErrRegistrationNotFound, issuer)
	}
	if err := validateEndpoint(meta.JWKSURI, r.config.AllowInsecureHTTP); err != nil {
		return endpoints{}, fmt.Errorf("%w: jwks_uri: %w", ErrRegistrationNotFound, err)
	}

	return endpoints{token: provider.Endpoint().TokenURL, jwks: meta.JWKSURI}, nil
}

var _ Resolver = (*DiscoveryResolver)(nil)
