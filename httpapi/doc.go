// Package httpapi exposes the authentication flows over HTTP for
// conversational frontends: a password login for regular clients and the
// challenge-answer login used by the chatbot action server.
package httpapi
