package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/MicahParks/keyfunc/v3"
	jose "github.com/go-jose/go-jose/v4"
)

// DefaultMaxKeySetBytes caps the size of a key-set document.
const DefaultMaxKeySetBytes = 1 << 20

// DecoderBuilder builds the Verifier for one realm.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: Build must honor cancellation and deadlines.
//   - Errors: every error is treated as transient; nothing is cached.
type DecoderBuilder interface {
	Build(ctx context.Context, reg Registration) (Verifier, error)
}

// DecoderBuilderFunc adapts a function to DecoderBuilder.
type DecoderBuilderFunc func(ctx context.Context, reg Registration) (Verifier, error)

// Build calls f(ctx, reg).
func (f DecoderBuilderFunc) Build(ctx context.Context, reg Registration) (Verifier, error) {
	return f(ctx, reg)
}

// JWKSConfig configures a JWKSDecoderBuilder.
type JWKSConfig struct {
	// HTTPClient performs key-set requests. Default: http.DefaultClient
	HTTPClient *http.Client

	// Fetch guards key-set requests. Default: NewFetchGuard(FetchConfig{})
	Fetch *FetchGuard

	// Verifier configures the verifiers built.
	Verifier VerifierConfig

	// MaxKeySetBytes caps the document size. Default: DefaultMaxKeySetBytes
	MaxKeySetBytes int64
}

// JWKSDecoderBuilder fetches a realm's JSON Web Key Set once and builds a
// JWT verifier over it.
type JWKSDecoderBuilder struct {
	config JWKSConfig
}

// NewJWKSDecoderBuilder creates a key-set builder.
func NewJWKSDecoderBuilder(config JWKSConfig) *JWKSDecoderBuilder {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Fetch == nil {
		config.Fetch = NewFetchGuard(FetchConfig{})
	}
	if config.MaxKeySetBytes <= 0 {
		config.MaxKeySetBytes = DefaultMaxKeySetBytes
	}
	return &JWKSDecoderBuilder{config: config}
}

// Build fetches reg.JWKSetURI and returns a verifier bound to its keys and
// to reg.IssuerURI.
func (b *JWKSDecoderBuilder) Build(ctx context.Context, reg Registration) (Verifier, error) {
	var raw []byte
	err := b.config.Fetch.Do(ctx, reg.IssuerURI, func(ctx context.Context) error {
		var err error
		raw, err = b.fetch(ctx, reg.JWKSetURI)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch key set %s: %w", reg.JWKSetURI, err)
	}

	if err := validateKeySet(raw); err != nil {
		return nil, fmt.Errorf("key set %s: %w", reg.JWKSetURI, err)
	}

	kf, err := keyfunc.NewJWKSetJSON(json.RawMessage(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeySet, err)
	}

	return NewJWTVerifier(kf.Keyfunc, reg.IssuerURI, b.config.Verifier), nil
}

func (b *JWKSDecoderBuilder) fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/jwk-set+json, application/json")

	resp, err := b.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, b.config.MaxKeySetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > b.config.MaxKeySetBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalidKeySet, b.config.MaxKeySetBytes)
	}
	return body, nil
}

// validateKeySet requires at least one valid public key usable for
// signatures. Private key material is rejected outright.
func validateKeySet(raw []byte) error {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(raw, &set); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKeySet, err)
	}

	signing := 0
	for _, k := range set.Keys {
		if !k.IsPublic() {
			return fmt.Errorf("%w: key %q contains private material", ErrInvalidKeySet, k.KeyID)
		}
		if k.Valid() && (k.Use == "" || k.Use == "sig") {
			signing++
		}
	}
	if signing == 0 {
		return fmt.Errorf("%w: no public signing keys", ErrInvalidKeySet)
	}
	return nil
}

var _ DecoderBuilder = (*JWKSDecoderBuilder)(nil)
