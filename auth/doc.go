// Package auth authenticates bearer tokens issued by any number of identity
// realms that are not known in advance.
//
// A Manager turns a raw token into a verified Principal in four sequential
// stages:
//
//  1. Extract reads iss and azp from the unverified payload (Extractor).
//  2. Resolve maps issuer::client to a Registration describing the realm's
//     endpoints (Resolver).
//  3. Decode fetches the realm's key set once and caches a Verifier bound to
//     it (DecoderCache, DecoderBuilder). Concurrent first requests for one
//     realm share a single fetch.
//  4. Verify checks signature, algorithm, issuer and time claims.
//
// Nothing read in stage 1 is trusted: it only selects which realm's keys the
// token must verify against. Every failure is reported as an *AuthError
// carrying a Kind; only KindRealmUnavailable is worth retrying.
package auth
