// Package backend provides the chirpfeed view-tracking service.

// This package contains no code of its own; the service is organized into
// subpackages:

// - cmd/viewd: CLI entry point (serve, migrate)
// - internal/views: the view recorder, watcher, session manager and stores
// - internal/handlers: HTTP request handlers for the view-tracking API
// - internal/models: Data models and database schemas
// - internal/database: Database connection and migrations
// - internal/cache: Redis client for the viewed-set cache
// - internal/middleware: HTTP middleware (auth, logging, metrics, tracing)
// - internal/metrics: Prometheus metric definitions
// - internal/telemetry: OpenTelemetry tracer setup
// - internal/logger: Structured logging
// - internal/config: Environment configuration

// See the individual package documentation for detailed reference.
package backend
