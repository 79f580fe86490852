package auth

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RegistrationIDSeparator joins issuer and client id in a registration ID.
const RegistrationIDSeparator = "::"

// AuthIdentifier names the realm and client an unverified token claims to
// come from. It selects trust material; it is never an identity.
type AuthIdentifier struct {
	Issuer   string
	ClientID string
}

// RegistrationID returns Issuer + "::" + ClientID.
func (id AuthIdentifier) RegistrationID() string {
	return id.Issuer + RegistrationIDSeparator + id.ClientID
}

// Extractor reads the realm identifier from an unverified token.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: malformed input reports false; implementations must not panic.
type Extractor interface {
	Extract(token string) (AuthIdentifier, bool)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(token string) (AuthIdentifier, bool)

// Extract calls f(token).
func (f ExtractorFunc) Extract(token string) (AuthIdentifier, bool) {
	return f(token)
}

// segmentParser only decodes; it is never used to validate.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// ClaimsExtractor reads the iss and azp claims of a compact JWS payload.
// The header and signature segments are not decoded.
type ClaimsExtractor struct{}

// Extract returns the identifier when the token has exactly three segments,
// the payload is a base64url JSON object, and both iss and azp are
// non-blank strings.
func (ClaimsExtractor) Extract(token string) (AuthIdentifier, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return AuthIdentifier{}, false
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return AuthIdentifier{}, false
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return AuthIdentifier{}, false
	}

	iss, ok := nonBlank(claims["iss"])
	if !ok {
		return AuthIdentifier{}, false
	}
	azp, ok := nonBlank(claims["azp"])
	if !ok {
		return AuthIdentifier{}, false
	}
	return AuthIdentifier{Issuer: iss, ClientID: azp}, true
}

func nonBlank(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

var _ Extractor = ClaimsExtractor{}
