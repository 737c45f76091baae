// Package api defines the value types and the error taxonomy shared by the
// Cuckoo sandbox client and its front ends.
//
// Every client failure is an [*APIError] with one of a closed set of types:
//   - invalid_argument: a required identifier or path is missing or invalid
//   - path_conflict: a download destination already exists
//   - unsupported_format: a report format the client does not implement
//   - unsupported_endpoint: a call not available on the target server flavor
//   - transport_error: network, HTTP status, decode or file system failure
//
// The package has zero external dependencies and performs no I/O.
package api
