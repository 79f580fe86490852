package auth

import (
	"net/http"
	"strings"
)

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// TokenFromRequest extracts the bearer token from r.
func TokenFromRequest(r *http.Request) (string, bool) {
	return BearerToken(r.Header.Get("Authorization"))
}
