// Package middleware provides HTTP middleware for the media catalog API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics keyed by route template
//   - Bearer-token authentication for mutating endpoints
//   - CORS headers and preflight handling
package middleware
