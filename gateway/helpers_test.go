package gateway

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/realmgate/config"
)

const testClientID = "gateway-client"

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func rsaKey() *rsa.PrivateKey {
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

// testRealm serves a Keycloak-shaped realm "demo": OpenID Provider metadata
// and a key set at the conventional certs path.
type testRealm struct {
	srv       *httptest.Server
	issuer    string
	jwksHits  atomic.Int64
	discovery atomic.Int64
}

func newTestRealm(t *testing.T) *testRealm {
	t.Helper()
	r := &testRealm{}

	jwks, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &rsaKey().PublicKey,
		KeyID:     "k1",
		Algorithm: "RS256",
		Use:       "sig",
	}}})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/demo/protocol/openid-connect/certs", func(w http.ResponseWriter, _ *http.Request) {
		r.jwksHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwks)
	})
	mux.HandleFunc("/realms/demo/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		r.discovery.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 r.issuer,
			"authorization_endpoint": r.issuer + "/protocol/openid-connect/auth",
			"token_endpoint":         r.issuer + "/protocol/openid-connect/token",
			"jwks_uri":               r.issuer + "/protocol/openid-connect/certs",
		})
	})
	r.srv = httptest.NewTLSServer(mux)
	t.Cleanup(r.srv.Close)
	r.issuer = r.srv.URL + "/realms/demo"
	return r
}

func (r *testRealm) token(t *testing.T, subject string) string {
	t.Helper()
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": r.issuer,
		"azp": testClientID,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	})
	tok.Header["kid"] = "k1"
	s, err := tok.SignedString(rsaKey())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// echo is what the test upstream reports about the request it received.
type echo struct {
	Path      string `json:"path"`
	Subject   string `json:"subject"`
	Issuer    string `json:"issuer"`
	RequestID string `json:"request_id"`
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echo{
			Path:      r.URL.Path,
			Subject:   r.Header.Get(HeaderSubject),
			Issuer:    r.Header.Get(HeaderIssuer),
			RequestID: r.Header.Get(HeaderRequestID),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testConfig protects "orders" and "billing", exposes "catalog", and routes
// orders and catalog to upstream. billing has no upstream.
func testConfig(upstream string) *config.Config {
	cfg := config.Default()
	cfg.Gateway.ServicesToAuthenticate = []string{"orders", "billing"}
	cfg.Gateway.ServicesToNotAuthenticate = []string{"catalog"}
	cfg.Gateway.Upstreams = map[string]string{
		"orders":  upstream,
		"catalog": upstream,
	}
	cfg.Gateway.ChallengeRealm = "realmgate"
	cfg.Observability.LogLevel = "error"
	return cfg
}

func newTestGateway(t *testing.T, realm *testRealm, cfg *config.Config) *Gateway {
	t.Helper()
	g, err := New(context.Background(), cfg,
		WithHTTPClient(realm.srv.Client()),
		WithLogWriter(io.Discard),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = g.Close(context.Background()) })
	return g
}

func serve(h http.Handler, method, target, token string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEcho(t *testing.T, rec *httptest.ResponseRecorder) echo {
	t.Helper()
	var e echo
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode upstream echo: %v (body %q)", err, rec.Body.String())
	}
	return e
}
