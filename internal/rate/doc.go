// Package rate provides the Redis-backed fixed-window counters behind the
// optional identity-lookup throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - cle: — lookup per e-mail
//   - cli: — lookup per-IP
//
// The throttle guards the HTTP edge only. It must never bound the
// challenge retry loop inside an established conversation.
package rate
