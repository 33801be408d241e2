// Package middleware provides net/http middleware that protects resource
// routes with fully verified session tokens issued by chatauth.
package middleware
