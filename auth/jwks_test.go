package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/jonwraymond/realmgate/resilience"
)

func TestJWKSDecoderBuilder_Build(t *testing.T) {
	realm := newTestRealm(t)

	v, err := realm.builder().Build(context.Background(), realm.registration())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	claims, err := v.Verify(context.Background(), realm.token(t, nil))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims["sub"] != "user-123" {
		t.Errorf("sub = %v, want user-123", claims["sub"])
	}
	if got := realm.jwksHits.Load(); got != 1 {
		t.Errorf("jwks hits = %d, want 1", got)
	}
}

func TestJWKSDecoderBuilder_VerifierBoundToIssuer(t *testing.T) {
	realm := newTestRealm(t)

	v, err := realm.builder().Build(context.Background(), realm.registration())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Same key, different issuer claim.
	claims := realm.claims()
	claims["iss"] = "https://other.example.com/realms/demo"
	if _, err := v.Verify(context.Background(), realm.token(t, claims)); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestJWKSDecoderBuilder_UnknownKid(t *testing.T) {
	realm := newTestRealm(t)

	v, err := realm.builder().Build(context.Background(), realm.registration())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tok := signToken(t, realm.key, "rotated-away", realm.claims())
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestJWKSDecoderBuilder_HTTPStatus(t *testing.T) {
	realm := newTestRealm(t)
	realm.status.Store(http.StatusInternalServerError)

	_, err := realm.builder().Build(context.Background(), realm.registration())
	if err == nil {
		t.Fatal("Build() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("Build() error = %v, want status in message", err)
	}
}

// serveKeySet serves body as the key set of a one-off realm.
func serveKeySet(t *testing.T, body []byte) (*httptest.Server, Registration) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	issuer := srv.URL + "/realms/x"
	return srv, Registration{
		ID:        issuer + "::" + testClientID,
		ClientID:  testClientID,
		IssuerURI: issuer,
		JWKSetURI: srv.URL + "/certs",
	}
}

func TestJWKSDecoderBuilder_InvalidKeySet(t *testing.T) {
	private, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       rsaKey(t, 0),
		KeyID:     "leaked",
		Algorithm: "RS256",
		Use:       "sig",
	}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	encryption, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &rsaKey(t, 0).PublicKey,
		KeyID:     "enc",
		Algorithm: "RSA-OAEP",
		Use:       "enc",
	}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	tests := []struct {
		name string
		body []byte
	}{
		{name: "not JSON", body: []byte("<html>login</html>")},
		{name: "no keys", body: []byte(`{"keys":[]}`)},
		{name: "private key", body: private},
		{name: "encryption keys only", body: encryption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reg := serveKeySet(t, tt.body)
			b := NewJWKSDecoderBuilder(JWKSConfig{HTTPClient: srv.Client()})

			_, err := b.Build(context.Background(), reg)
			if !errors.Is(err, ErrInvalidKeySet) {
				t.Errorf("Build() error = %v, want ErrInvalidKeySet", err)
			}
		})
	}
}

func TestJWKSDecoderBuilder_MaxKeySetBytes(t *testing.T) {
	realm := newTestRealm(t)
	b := NewJWKSDecoderBuilder(JWKSConfig{HTTPClient: realm.srv.Client(), MaxKeySetBytes: 64})

	_, err := b.Build(context.Background(), realm.registration())
	if !errors.Is(err, ErrInvalidKeySet) {
		t.Errorf("Build() error = %v, want ErrInvalidKeySet", err)
	}
}

func TestJWKSDecoderBuilder_BreakerOpens(t *testing.T) {
	realm := newTestRealm(t)
	realm.status.Store(http.StatusServiceUnavailable)

	guard := NewFetchGuard(FetchConfig{BreakerFailures: 2})
	b := NewJWKSDecoderBuilder(JWKSConfig{HTTPClient: realm.srv.Client(), Fetch: guard})
	reg := realm.registration()

	for range 2 {
		if _, err := b.Build(context.Background(), reg); err == nil {
			t.Fatal("Build() error = nil, want error")
		}
	}

	_, err := b.Build(context.Background(), reg)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Build() error = %v, want ErrCircuitOpen", err)
	}
	if got := realm.jwksHits.Load(); got != 2 {
		t.Errorf("jwks hits = %d, want 2", got)
	}
	if open := guard.Breakers().Open(); len(open) != 1 || open[0] != reg.IssuerURI {
		t.Errorf("Open() = %v, want [%s]", open, reg.IssuerURI)
	}
}

func TestJWKSDecoderBuilder_HonorsContext(t *testing.T) {
	realm := newTestRealm(t)
	realm.release = make(chan struct{})
	t.Cleanup(func() { close(realm.release) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := realm.builder().Build(ctx, realm.registration()); err == nil {
		t.Error("Build() with cancelled context error = nil, want error")
	}
}

func TestDecoderBuilderFunc(t *testing.T) {
	var calls atomic.Int32
	b := DecoderBuilderFunc(func(context.Context, Registration) (Verifier, error) {
		calls.Add(1)
		return VerifierFunc(nil), nil
	})
	if _, err := b.Build(context.Background(), Registration{}); err != nil || calls.Load() != 1 {
		t.Errorf("DecoderBuilderFunc.Build() = %v, calls %d", err, calls.Load())
	}
}
