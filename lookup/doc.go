// Package lookup provides an HTTP client for the institutional record
// service. It implements chatauth.IdentityProvider so the engine can
// resolve e-mail addresses to identity records, and exposes the
// password-verification call used by the non-conversational login
// endpoint.
package lookup
