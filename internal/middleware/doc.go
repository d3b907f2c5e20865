// Package middleware provides HTTP middleware for the gallery server.
//
// It includes:
//   - Request ids carried in the X-Request-ID header
//   - Access logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - gzip compression for JSON and text responses
//
// Order matters: RequestID must wrap the W3CLogger so log lines carry the id, and
// Metrics is installed with Router.Use so it sees the matched route.
package middleware
