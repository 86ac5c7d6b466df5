// Package http provides the observability endpoints for filegate.
//
// The file service itself speaks a line protocol over raw TCP; this package
// runs a separate, optional HTTP listener for operators.
//
// # Usage
//
//	reg := prometheus.NewRegistry()
//	metrics := http.NewMetrics(reg)
//	srv := http.NewAdminServer(reg,
//	    http.WithAddr("127.0.0.1:9090"),
//	    http.WithHealthChecker(http.NewHealthChecker(allocator, registry, version)),
//	    http.WithLogger(logger),
//	)
//	err := srv.Start(ctx)
//
// # Endpoints
//
//	GET /metrics - Prometheus exposition of the registry
//	GET /health  - JSON health report (200 healthy, 503 unhealthy)
//
// Every request passes through RequestIDMiddleware, which tags the logger
// stored in the request context with a request_id.
package http
