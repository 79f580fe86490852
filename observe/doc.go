// Package observe provides structured logging and OpenTelemetry
// instrumentation for the gateway.
//
// Logging is JSON on a writer, with credential-bearing field keys
// (token, authorization, secret, ...) redacted before they are written.
// Tracing and metrics are set up once by NewObserver; the authentication
// pipeline and the path guard consume them through Instrumentation, which
// opens one span per authentication stage and records attempt, decoder
// build and guard decision metrics.
package observe
