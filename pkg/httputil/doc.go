// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, request parsing, and the generic
// middleware every route shares: request-id injection, structured
// request logging, panic recovery, and CORS headers.
package httputil
