// Package health reports whether the gateway can serve traffic.
//
// A Checker reports the Status of one component. The Aggregator runs every
// registered checker under a shared deadline and folds the results into an
// overall status: any unhealthy check makes the whole unhealthy, otherwise
// any degraded check makes it degraded.
//
// RealmsChecker watches the authentication core: how many realms have a
// cached verifier and which realms have an open fetch circuit breaker. An
// open breaker only degrades the gateway, since tokens from every other
// realm are still verified.
//
// Mount registers the probe endpoints on a chi router:
//
//	r := chi.NewRouter()
//	health.Mount(r, agg)
//	// GET /healthz  liveness, always 200
//	// GET /readyz   200 unless a check is unhealthy
//	// GET /health   JSON detail for every check
package health
