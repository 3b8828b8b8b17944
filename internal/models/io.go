// Package models provides the core data structures exchanged between the webhook runtimes and the relay handler.
package models

// Request is a single inbound webhook call. Header keys are lower-cased by the runtime before they reach the handler.
type Request struct {
	Method  string
	Path    string
	Body    []byte
	Headers map[string]string
}

// Response defines the structure for an HTTP response containing a body, headers, and a status code.
type Response struct {
	Body       string
	Headers    map[string]string
	StatusCode int
}
