// Package handler exposes the search engine behind a JSON request/response
// contract suitable for embedding in an HTTP endpoint or a function runtime.
// Search failures surface inside the response body, never as transport-level
// errors.
package handler
