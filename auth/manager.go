package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/realmgate/observe"
)

// Stage is a state of one authentication attempt.
type Stage int

const (
	StageNew Stage = iota
	StageExtracted
	StageResolved
	StageDecoded
	StageAuthenticated
	StageFailed
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageNew:
		return "NEW"
	case StageExtracted:
		return "EXTRACTED"
	case StageResolved:
		return "RESOLVED"
	case StageDecoded:
		return "DECODED"
	case StageAuthenticated:
		return "AUTHENTICATED"
	case StageFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ErrNilResolver is returned by NewManager without a resolver.
var ErrNilResolver = errors.New("auth: resolver is required")

// Manager authenticates bearer tokens from any realm the resolver admits.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: honored by resolution and by the wait for a verifier build.
//   - Errors: Authenticate returns *AuthError only. It never retries.
type Manager struct {
	extractor Extractor
	resolver  Resolver
	builder   DecoderBuilder
	decoders  *DecoderCache
	logger    observe.Logger
	inst      *observe.Instrumentation
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithExtractor replaces the default ClaimsExtractor.
func WithExtractor(e Extractor) Option {
	return func(m *Manager) { m.extractor = e }
}

// WithDecoderBuilder replaces the default key-set builder. It is ignored
// when WithDecoderCache is also given.
func WithDecoderBuilder(b DecoderBuilder) Option {
	return func(m *Manager) { m.builder = b }
}

// WithDecoderCache supplies a preconfigured decoder cache.
func WithDecoderCache(c *DecoderCache) Option {
	return func(m *Manager) { m.decoders = c }
}

// WithLogger sets the logger for failures.
func WithLogger(l observe.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithInstrumentation sets tracing and metrics.
func WithInstrumentation(i *observe.Instrumentation) Option {
	return func(m *Manager) { m.inst = i }
}

// WithClock sets the time source for token validation and cache entries.
// It only affects the default builder and cache.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager.
func NewManager(resolver Resolver, opts ...Option) (*Manager, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}

	m := &Manager{resolver: resolver}
	for _, opt := range opts {
		opt(m)
	}

	if m.extractor == nil {
		m.extractor = ClaimsExtractor{}
	}
	if m.logger == nil {
		m.logger = observe.NopLogger()
	}
	if m.inst == nil {
		m.inst = observe.NopInstrumentation()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.decoders == nil {
		if m.builder == nil {
			m.builder = NewJWKSDecoderBuilder(JWKSConfig{
				Verifier: VerifierConfig{Clock: m.now},
			})
		}
		m.decoders = NewDecoderCache(m.builder, DecoderCacheConfig{
			Clock:           m.now,
			Instrumentation: m.inst,
		})
	}

	return m, nil
}

// Decoders returns the manager's decoder cache.
func (m *Manager) Decoders() *DecoderCache {
	return m.decoders
}

// Authenticate runs NEW → EXTRACTED → RESOLVED → DECODED → AUTHENTICATED.
// A failure at any step ends the attempt with an *AuthError.
func (m *Manager) Authenticate(ctx context.Context, token string) (*Principal, error) {
	started := time.Now()

	var (
		id AuthIdentifier
		ok bool
	)
	_ = m.inst.Stage(ctx, observe.StageExtract, func(context.Context) error {
		id, ok = m.extractor.Extract(token)
		if !ok {
			return ErrMissingClaims
		}
		return nil
	})
	if !ok {
		return nil, m.fail(ctx, started, &AuthError{Kind: KindMissingClaims, Stage: StageNew})
	}

	regID := id.RegistrationID()
	regAttr := attribute.String("registration_id", regID)

	var reg Registration
	err := m.inst.Stage(ctx, observe.StageResolve, func(ctx context.Context) error {
		var err error
		reg, err = m.resolver.Resolve(ctx, regID)
		if err == nil && reg.ID == "" {
			err = fmt.Errorf("%w: resolver returned an empty registration", ErrRegistrationNotFound)
		}
		return err
	}, regAttr)
	if err != nil {
		kind := KindRealmUnavailable
		if errors.Is(err, ErrRegistrationNotFound) {
			kind = KindUnknownRealm
		}
		return nil, m.fail(ctx, started, &AuthError{Kind: kind, Stage: StageExtracted, RegistrationID: regID, Err: err})
	}

	var verifier Verifier
	err = m.inst.Stage(ctx, observe.StageDecode, func(ctx context.Context) error {
		var err error
		verifier, err = m.decoders.Get(ctx, reg)
		return err
	}, regAttr)
	if err != nil {
		return nil, m.fail(ctx, started, &AuthError{Kind: KindRealmUnavailable, Stage: StageResolved, RegistrationID: regID, Err: err})
	}

	var principal *Principal
	err = m.inst.Stage(ctx, observe.StageVerify, func(ctx context.Context) error {
		claims, err := verifier.Verify(ctx, token)
		if err != nil {
			return err
		}
		principal, err = newPrincipal(reg, claims)
		return err
	}, regAttr)
	if err != nil {
		return nil, m.fail(ctx, started, &AuthError{Kind: kindOfVerifyError(err), Stage: StageDecoded, RegistrationID: regID, Err: err})
	}

	m.inst.Attempt(ctx, "", started)
	m.logger.Debug(ctx, "authenticated",
		observe.Field{Key: "registration_id", Value: regID},
		observe.Field{Key: "subject", Value: principal.Subject},
	)
	return principal, nil
}

func (m *Manager) fail(ctx context.Context, started time.Time, ae *AuthError) error {
	m.inst.Attempt(ctx, ae.Kind.String(), started)

	fields := []observe.Field{
		{Key: "kind", Value: ae.Kind.String()},
		{Key: "stage", Value: ae.Stage.String()},
	}
	if ae.RegistrationID != "" {
		fields = append(fields, observe.Field{Key: "registration_id", Value: ae.RegistrationID})
	}
	if ae.Err != nil {
		fields = append(fields, observe.Field{Key: "error", Value: ae.Err.Error()})
	}

	if ae.Retryable() {
		m.logger.Warn(ctx, "authentication failed", fields...)
	} else {
		m.logger.Info(ctx, "authentication failed", fields...)
	}
	return ae
}
