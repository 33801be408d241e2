// Package chatauth implements knowledge-based challenge-response
// authentication for conversational agents.
//
// Instead of a password prompt, the engine probes partial knowledge of a
// fixed-format identifier (for example an enrollment number): it draws a
// random challenge ("what are the first 3 characters of your
// identifier?"), verifies the fragment the user supplies, and on success
// issues a signed session token. Sessions are stateless on the server
// side: the token is the session. A sliding-window inactivity monitor
// runs before every protected operation and forces logout after the
// configured idle timeout.
//
// The caller owns per-conversation slot storage; the engine operates on
// an explicit [ConversationState] value passed into every call. See the
// slots package for ready-made Redis and in-memory stores.
package chatauth
