package auth

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is an authenticated identity. It is built only from verified
// claims.
type Principal struct {
	Subject        string
	Issuer         string
	ClientID       string
	RegistrationID string
	Audience       []string
	Claims         map[string]any
	ExpiresAt      time.Time
	IssuedAt       time.Time
}

// Claim returns a verified claim by name.
func (p *Principal) Claim(name string) (any, bool) {
	v, ok := p.Claims[name]
	return v, ok
}

func newPrincipal(reg Registration, claims jwt.MapClaims) (*Principal, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: sub: %w", ErrMalformedToken, err)
	}
	if strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("%w: sub claim missing", ErrMalformedToken)
	}

	iss, _ := claims.GetIssuer()
	azp, _ := claims["azp"].(string)
	aud, _ := claims.GetAudience()

	p := &Principal{
		Subject:        sub,
		Issuer:         iss,
		ClientID:       azp,
		RegistrationID: reg.ID,
		Audience:       []string(aud),
		Claims:         maps.Clone(map[string]any(claims)),
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		p.ExpiresAt = exp.Time
	}
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		p.IssuedAt = iat.Time
	}
	return p, nil
}
