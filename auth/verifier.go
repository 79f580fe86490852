package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithms are the asymmetric JWS algorithms accepted when none are
// configured. Symmetric algorithms are never a default: a realm's public key
// set cannot verify them.
var DefaultAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// Verifier checks a token against one realm's trust material and returns
// its verified claims.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: rejections wrap ErrTokenExpired, ErrTokenNotYetValid,
//     ErrMalformedToken or ErrSignatureInvalid. Any other error is treated
//     as a signature failure.
type Verifier interface {
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (jwt.MapClaims, error)

// Verify calls f(ctx, token).
func (f VerifierFunc) Verify(ctx context.Context, token string) (jwt.MapClaims, error) {
	return f(ctx, token)
}

// VerifierConfig configures JWT verification.
type VerifierConfig struct {
	// AllowedAlgorithms restricts the header alg. Default: DefaultAlgorithms
	AllowedAlgorithms []string

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration

	// RequireExpiration rejects tokens without exp.
	RequireExpiration bool

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

type jwtVerifier struct {
	parser  *jwt.Parser
	keyfunc jwt.Keyfunc
}

// NewJWTVerifier creates a Verifier that checks signature with keyfunc and
// requires iss to equal issuer.
func NewJWTVerifier(keyfunc jwt.Keyfunc, issuer string, config VerifierConfig) Verifier {
	algs := config.AllowedAlgorithms
	if len(algs) == 0 {
		algs = DefaultAlgorithms
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(algs),
		jwt.WithIssuer(issuer),
		jwt.WithLeeway(config.Leeway),
	}
	if config.RequireExpiration {
		opts = append(opts, jwt.WithExpirationRequired())
	}
	if config.Clock != nil {
		opts = append(opts, jwt.WithTimeFunc(config.Clock))
	}

	return &jwtVerifier{parser: jwt.NewParser(opts...), keyfunc: keyfunc}
}

func (v *jwtVerifier) Verify(_ context.Context, token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyfunc); err != nil {
		return nil, classifyJWTError(err)
	}
	return claims, nil
}

// classifyJWTError maps golang-jwt errors onto the package sentinels.
// Signatures are checked before claims, so a time-based rejection always
// concerns an authentic token.
func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %w", ErrTokenNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrInvalidType):
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	default:
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
}

// kindOfVerifyError maps a Verifier error to a failure Kind.
func kindOfVerifyError(err error) Kind {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return KindExpired
	case errors.Is(err, ErrTokenNotYetValid):
		return KindNotYetValid
	case errors.Is(err, ErrMalformedToken):
		return KindMalformedToken
	default:
		return KindSignatureInvalid
	}
}

var _ Verifier = (*jwtVerifier)(nil)
