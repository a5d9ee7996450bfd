// Package backend is the HTTP client for the Stellara REST API.
//
// The API exposes a login endpoint and a products collection:
//
//	POST   /api/auth/login      {email, password} -> {token, message}
//	GET    /api/products        -> [Product]
//	GET    /api/products/{id}   -> Product
//	POST   /api/products        multipart, bearer token
//	PUT    /api/products/{id}   multipart, bearer token
//	DELETE /api/products/{id}   bearer token
//
// Reads are unauthenticated. Mutations without a token fail with
// ErrUnauthorized before any request is made.
//
// # Errors
//
// Every call fails in one of two shapes. *APIError means the backend answered
// with a non-2xx status; its Message carries the backend's "message" field.
// *TransportError means there was no usable answer: the backend was
// unreachable, timed out, or sent a body that could not be decoded.
// IsRejected and IsTransport tell them apart, and UserMessage reduces either
// to the one line shown to the operator.
//
// Calls are never retried.
package backend
