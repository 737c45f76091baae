// Package journal keeps a record of the samples and URLs submitted to the
// sandbox and the task ids the server assigned to them.
//
// Backends live in subpackages (memory, postgres) and implement the Journal
// interface defined here. A Recorder wraps a submitting client and records
// every successful submission without changing its result.
package journal
