package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/realmgate/auth"
	"github.com/jonwraymond/realmgate/config"
	"github.com/jonwraymond/realmgate/guard"
	"github.com/jonwraymond/realmgate/health"
	"github.com/jonwraymond/realmgate/observe"
)

type options struct {
	httpClient *http.Client
	transport  http.RoundTripper
	logWriter  io.Writer
}

// Option configures a Gateway.
type Option func(*options)

// WithHTTPClient sets the client used for identity provider requests
// (discovery and key sets).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithUpstreamTransport sets the transport used to reach backend services.
func WithUpstreamTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogWriter redirects log lines and stdout exporters. Default: os.Stderr
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

// Gateway is an assembled edge server.
type Gateway struct {
	config   *config.Config
	observer observe.Observer
	logger   observe.Logger
	registry *prometheus.Registry
	fetch    *auth.FetchGuard
	manager  *auth.Manager
	guard    *guard.Guard
	health   *health.Aggregator
	proxy    *Proxy
	handler  http.Handler
}

// New builds a Gateway from cfg. The caller owns cfg and must not change
// it afterwards. Close releases the telemetry providers New installs.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}

	g := &Gateway{config: cfg, registry: prometheus.NewRegistry()}
	g.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.ObserveConfig()
	obsCfg.Writer = o.logWriter
	obsCfg.Registerer = g.registry
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, err
	}
	g.observer = obs
	g.logger = obs.Logger()

	inst, err := observe.InstrumentationFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	if err := g.build(cfg, o, inst); err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	return g, nil
}

func (g *Gateway) build(cfg *config.Config, o options, inst *observe.Instrumentation) error {
	g.fetch = auth.NewFetchGuard(cfg.FetchConfig())

	var resolver auth.Resolver
	if cfg.Realms.Discovery {
		resolver = auth.NewDiscoveryResolver(auth.DiscoveryConfig{
			HTTPClient:        o.httpClient,
			Fetch:             g.fetch,
			AllowInsecureHTTP: cfg.Realms.AllowInsecureHTTP,
			Policy:            cfg.IssuerPolicy(),
			TTL:               cfg.Realms.DiscoveryTTL,
		})
	} else {
		resolver = auth.NewConventionResolver(auth.ConventionConfig{
			TokenPath:         cfg.Realms.TokenPath,
			JWKSPath:          cfg.Realms.JWKSPath,
			AllowInsecureHTTP: cfg.Realms.AllowInsecureHTTP,
			Policy:            cfg.IssuerPolicy(),
		})
	}

	builder := auth.NewJWKSDecoderBuilder(auth.JWKSConfig{
		HTTPClient:     o.httpClient,
		Fetch:          g.fetch,
		Verifier:       cfg.VerifierConfig(),
		MaxKeySetBytes: cfg.Realms.MaxKeySetBytes,
	})
	decoders := auth.NewDecoderCache(builder, auth.DecoderCacheConfig{
		TTL:             cfg.Realms.DecoderTTL,
		BuildTimeout:    cfg.Realms.Fetch.BuildTimeout,
		Instrumentation: inst,
	})

	var err error
	g.manager, err = auth.NewManager(resolver,
		auth.WithDecoderCache(decoders),
		auth.WithLogger(g.logger),
		auth.WithInstrumentation(inst),
	)
	if err != nil {
		return err
	}

	g.guard, err = guard.New(cfg.GuardConfig())
	if err != nil {
		return err
	}

	g.health = health.NewAggregator(health.AggregatorConfig{})
	if err := g.health.Register(health.NewRealmsChecker(health.RealmsCheckerConfig{
		Cached:   decoders.Len,
		Breakers: g.fetch.Breakers(),
	})); err != nil {
		return err
	}

	g.proxy, err = NewProxy(cfg.Gateway.Upstreams, ProxyConfig{
		Transport: o.transport,
		Logger:    g.logger,
	})
	if err != nil {
		return err
	}

	g.handler = g.routes(inst)
	return nil
}

func (g *Gateway) routes(inst *observe.Instrumentation) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)

	health.Mount(r, g.health)

	m := g.config.Observability.Metrics
	if m.Enabled && m.Exporter == "prometheus" {
		r.Handle("/metrics", promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{Registry: g.registry}))
	}

	r.With(guard.Middleware(g.guard, g.manager, guard.MiddlewareConfig{
		Logger:          g.logger,
		Instrumentation: inst,
		Realm:           g.config.Gateway.ChallengeRealm,
	})).Handle("/*", g.proxy)

	return r
}

// Handler returns the root HTTP handler.
func (g *Gateway) Handler() http.Handler { return g.handler }

// Manager returns the authentication manager.
func (g *Gateway) Manager() *auth.Manager { return g.manager }

// Guard returns the path guard.
func (g *Gateway) Guard() *guard.Guard { return g.guard }

// Health returns the health aggregator, for registering extra checks.
func (g *Gateway) Health() *health.Aggregator { return g.health }

// Logger returns the gateway logger.
func (g *Gateway) Logger() observe.Logger { return g.logger }

// Run listens on the configured address and serves until ctx ends, then
// shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Server.Addr)
	if err != nil {
		return err
	}
	return g.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends. In-flight requests get
// Server.ShutdownTimeout to finish.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           g.handler,
		ReadHeaderTimeout: g.config.Server.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	g.logger.Info(ctx, "gateway listening",
		observe.Field{Key: "addr", Value: ln.Addr().String()},
		observe.Field{Key: "services", Value: g.proxy.Services()},
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	g.logger.Info(ctx, "gateway shutting down")
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	return err
}

// Close flushes and stops telemetry.
func (g *Gateway) Close(ctx context.Context) error {
	return g.observer.Shutdown(ctx)
}
