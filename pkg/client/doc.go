// Package client is a Go client for the REST API of a Cuckoo malware-analysis
// sandbox.
//
// Each method validates its arguments, builds a URL from the configured
// scheme, host and port, issues a single HTTP request and either returns the
// decoded JSON body unchanged or streams a binary payload to a file.
//
// # Quick Start
//
//	c, err := client.New(client.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := c.SubmitFile(ctx, "/samples/invoice.exe", map[string]string{"timeout": "120"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	task, err := c.ViewTask(ctx, 42)
//
// Failures are [*api.APIError] values; use [api.IsInvalidArgument],
// [api.IsPathConflict] and the other predicates to tell them apart.
//
// The client holds only its immutable configuration and adds no locking of
// its own. It is safe for concurrent use when the underlying http.Client is.
package client
