// Package auth verifies the bearer tokens presented to the authorization API
// and turns them into a Principal. Token issuance lives in the portal's login
// flow; this package only checks signature, expiry, issuer and audience.
package auth
