// Package observability provides structured logging and Prometheus metrics
// for the authorization core. Loggers and metric sets are created explicitly
// and passed to components; nothing in this package keeps global state.
package observability
