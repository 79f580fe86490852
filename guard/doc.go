// Package guard decides, from the request path and method alone, whether a
// request is permitted outright, must be authenticated, or is denied.
//
// Rules are evaluated in a fixed order and the first match wins:
//
//  1. OPTIONS on any path is permitted (CORS preflight).
//  2. Built-in public infrastructure patterns are permitted.
//  3. "/api/<name>/**" for each do-not-authenticate service is permitted.
//  4. "/api/<name>/**" for each authenticate service requires a token.
//  5. Anything else is denied.
//
// Paths with "." or ".." segments that are not preflights are denied
// before rule 2, so that a permitted prefix can never be used to reach a
// protected path once an upstream normalizes it.
//
// Middleware wires a Guard and an authenticator into net/http. Denials are
// answered with 403, failed or missing authentication with 401 and a Bearer
// challenge. Response bodies never carry the failure reason.
package guard
