package guard

import (
	"context"
	"net/http"

	"github.com/jonwraymond/realmgate/auth"
	"github.com/jonwraymond/realmgate/observe"
)

// Authenticator verifies a bearer token. *auth.Manager implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// Logger receives one entry per refused request.
	Logger observe.Logger

	// Instrumentation counts decisions.
	Instrumentation *observe.Instrumentation

	// Realm, when set, is advertised in the Bearer challenge.
	Realm string
}

// Middleware enforces g in front of next. Authenticate decisions call
// authn; on success the principal is attached to the request context.
func Middleware(g *Guard, authn Authenticator, config MiddlewareConfig) func(http.Handler) http.Handler {
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Instrumentation == nil {
		config.Instrumentation = observe.NopInstrumentation()
	}
	log := config.Logger
	inst := config.Instrumentation

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			d, err := g.Check(r.URL.Path, r.Method)
			inst.Decision(ctx, d.Action.String(), d.Service)

			switch d.Action {
			case Permit:
				next.ServeHTTP(w, r)
				return

			case Authenticate:
				token, ok := auth.TokenFromRequest(r)
				if !ok {
					log.Info(ctx, "bearer token missing",
						observe.Field{Key: "method", Value: r.Method},
						observe.Field{Key: "path", Value: r.URL.Path},
						observe.Field{Key: "service", Value: d.Service},
					)
					challenge(w, config.Realm, "")
					return
				}

				p, err := authn.Authenticate(ctx, token)
				if err != nil {
					kind := "unknown"
					if k, ok := auth.KindOf(err); ok {
						kind = k.String()
					}
					log.Info(ctx, "request rejected",
						observe.Field{Key: "method", Value: r.Method},
						observe.Field{Key: "path", Value: r.URL.Path},
						observe.Field{Key: "service", Value: d.Service},
						observe.Field{Key: "kind", Value: kind},
					)
					challenge(w, config.Realm, "invalid_token")
					return
				}

				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(ctx, p)))
				return

			default:
				log.Info(ctx, "request denied",
					observe.Field{Key: "method", Value: r.Method},
					observe.Field{Key: "path", Value: r.URL.Path},
					observe.Field{Key: "rule", Value: d.Rule},
					observe.Field{Key: "error", Value: err.Error()},
				)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			}
		})
	}
}

// challenge writes a 401 with an RFC 6750 Bearer challenge.
func challenge(w http.ResponseWriter, realm, errCode string) {
	v := "Bearer"
	sep := " "
	if realm != "" {
		v += sep + `realm="` + realm + `"`
		sep = ", "
	}
	if errCode != "" {
		v += sep + `error="` + errCode + `"`
	}
	w.Header().Set("WWW-Authenticate", v)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

var _ Authenticator = (*auth.Manager)(nil)
