// Package middleware provides HTTP middleware for the gallery server.
//
// It includes:
//   - Structured access logging on the "http" component logger
//   - Prometheus request metrics labelled by route template
//   - Configurable filtering for static files and health checks
package middleware
