package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const testClientID = "gateway-client"

var (
	keyOnce  sync.Once
	testKeys [2]*rsa.PrivateKey
)

// rsaKey returns one of two process-wide test keys.
func rsaKey(t *testing.T, i int) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		for n := range testKeys {
			k, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			testKeys[n] = k
		}
	})
	return testKeys[i]
}

func keySetJSON(t *testing.T, key *rsa.PrivateKey, kid string) []byte {
	t.Helper()
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     kid,
		Algorithm: "RS256",
		Use:       "sig",
	}}}
	b, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return b
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// testRealm is a Keycloak-shaped identity provider on a TLS test server.
type testRealm struct {
	srv    *httptest.Server
	issuer string
	key    *rsa.PrivateKey
	kid    string

	jwksHits atomic.Int64
	status   atomic.Int64 // 0 means 200
	release  chan struct{}
}

func newTestRealm(t *testing.T) *testRealm {
	t.Helper()
	r := &testRealm{key: rsaKey(t, 0), kid: "realm-key-1"}
	jwks := keySetJSON(t, r.key, r.kid)

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/demo/protocol/openid-connect/certs", func(w http.ResponseWriter, req *http.Request) {
		r.jwksHits.Add(1)
		if r.release != nil {
			<-r.release
		}
		if code := r.status.Load(); code != 0 {
			w.WriteHeader(int(code))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwks)
	})
	r.srv = httptest.NewTLSServer(mux)
	t.Cleanup(r.srv.Close)
	r.issuer = r.srv.URL + "/realms/demo"
	return r
}

func (r *testRealm) claims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": r.issuer,
		"azp": testClientID,
		"sub": "user-123",
		"aud": "account",
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}
}

func (r *testRealm) token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if claims == nil {
		claims = r.claims()
	}
	return signToken(t, r.key, r.kid, claims)
}

func (r *testRealm) builder() *JWKSDecoderBuilder {
	return NewJWKSDecoderBuilder(JWKSConfig{
		HTTPClient: r.srv.Client(),
		Verifier:   VerifierConfig{RequireExpiration: true},
	})
}

func (r *testRealm) manager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithDecoderBuilder(r.builder())}, opts...)
	m, err := NewManager(NewConventionResolver(ConventionConfig{}), opts...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func (r *testRealm) registration() Registration {
	return Registration{
		ID:        r.issuer + "::" + testClientID,
		ClientID:  testClientID,
		IssuerURI: r.issuer,
		JWKSetURI: r.issuer + DefaultJWKSPath,
	}
}

// unsignedToken builds header.payload. with an arbitrary JSON payload.
func unsignedToken(t *testing.T, payload any) string {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return "eyJhbGciOiJSUzI1NiJ9." + (&jwt.Token{}).EncodeSegment(b) + "."
}
