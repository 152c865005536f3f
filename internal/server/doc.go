// Package server hosts the Fiber HTTP service and request middleware chain.
// It bootstraps the application, attaches recover/request-ID middlewares,
// maps the typed pipeline errors onto HTTP statuses with a uniform JSON
// error envelope, and exposes the diagnostics endpoint. Route handlers live
// in the routes subpackage and depend on the service layer only.
package server
