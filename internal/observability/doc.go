// Package observability builds the process logger and derives request-scoped
// loggers carrying the chi request id.
package observability
