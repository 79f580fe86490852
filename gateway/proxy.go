package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/jonwraymond/realmgate/auth"
	"github.com/jonwraymond/realmgate/guard"
	"github.com/jonwraymond/realmgate/observe"
)

// Identity headers set on proxied requests.
const (
	HeaderSubject = "X-Authenticated-Subject"
	HeaderIssuer  = "X-Authenticated-Issuer"
)

// ProxyConfig configures Proxy.
type ProxyConfig struct {
	// Transport performs upstream requests. Default: http.DefaultTransport
	Transport http.RoundTripper

	// Logger receives upstream failures.
	Logger observe.Logger
}

// Proxy forwards /api/<service>/** to the service's upstream.
//
// Contract:
//   - Concurrency: safe for concurrent use; the upstream table is fixed at
//     construction.
//   - Errors: requests for a service without an upstream, and upstream
//     transport failures, are answered with 502.
type Proxy struct {
	upstreams map[string]*httputil.ReverseProxy
	log       observe.Logger
}

// NewProxy creates a proxy over upstreams, a map from service name to base
// URL.
func NewProxy(upstreams map[string]string, config ProxyConfig) (*Proxy, error) {
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	p := &Proxy{
		upstreams: make(map[string]*httputil.ReverseProxy, len(upstreams)),
		log:       config.Logger,
	}
	for name, raw := range upstreams {
		if err := guard.ValidateServiceName(name); err != nil {
			return nil, err
		}
		target, err := url.Parse(raw)
		if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
			return nil, fmt.Errorf("%w: %s: %q", ErrInvalidUpstream, name, raw)
		}
		p.upstreams[name] = p.reverseProxy(name, target, config.Transport)
	}
	return p, nil
}

func (p *Proxy) reverseProxy(service string, target *url.URL, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			pr.Out.Header.Del(HeaderSubject)
			pr.Out.Header.Del(HeaderIssuer)
			ctx := pr.In.Context()
			if pl := auth.PrincipalFromContext(ctx); pl != nil {
				pr.Out.Header.Set(HeaderSubject, pl.Subject)
				pr.Out.Header.Set(HeaderIssuer, pl.Issuer)
			}
			if id := RequestIDFromContext(ctx); id != "" {
				pr.Out.Header.Set(HeaderRequestID, id)
			}
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.log.Warn(r.Context(), "upstream request failed",
				observe.Field{Key: "service", Value: service},
				observe.Field{Key: "path", Value: r.URL.Path},
				observe.Field{Key: "request_id", Value: RequestIDFromContext(r.Context())},
				observe.Field{Key: "error", Value: err.Error()},
			)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}
}

// Services returns the names with an upstream, sorted.
func (p *Proxy) Services() []string {
	names := make([]string, 0, len(p.upstreams))
	for name := range p.upstreams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	service := ServiceOf(r.URL.Path)
	rp, ok := p.upstreams[service]
	if !ok {
		p.log.Warn(r.Context(), "no upstream for request",
			observe.Field{Key: "service", Value: service},
			observe.Field{Key: "path", Value: r.URL.Path},
		)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	rp.ServeHTTP(w, r)
}

// ServiceOf returns the service segment of an /api/<service>/ path, or ""
// for any other path.
func ServiceOf(path string) string {
	rest, ok := strings.CutPrefix(path, guard.APIPrefix)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

var _ http.Handler = (*Proxy)(nil)
