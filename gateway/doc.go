// Package gateway assembles the HTTP edge: a chi router carrying request
// IDs, health and metrics routes, the path guard, and one reverse proxy
// per configured backend service.
//
// Routes:
//
//	/healthz, /readyz, /health, /health/{check}  health probes
//	/metrics                                      prometheus scrape (when enabled)
//	/*                                            guard, then proxy
//
// Requests under /api/<service>/ are forwarded to the upstream configured
// for <service> with the path unchanged. Authenticated requests carry the
// verified subject and issuer in X-Authenticated-Subject and
// X-Authenticated-Issuer; client-supplied values of those headers are
// always dropped.
package gateway
