// Package observability builds the process-wide structured logger and attaches
// request scoped fields to it.
package observability
