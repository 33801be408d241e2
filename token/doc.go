// Package token issues and validates the signed session credentials that
// represent an authenticated conversation. Tokens are HMAC-SHA256 signed
// and self-contained; the server keeps no session table.
//
// Two validation modes exist on purpose: [Manager.Parse] fully verifies
// the signature and is what a resource server must use before trusting
// any claim, while [Live] only decodes the expiry as a client-side
// liveness hint for parties that do not hold the signing secret.
package token
