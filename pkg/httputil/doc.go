// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and request parsing on the webhook
// management API.
package httputil
