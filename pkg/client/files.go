package client

import (
	"context"

	"github.com/rhuss/cuckoo/pkg/api"
)

// ViewFile returns the details of a sample. The hash kind is checked after
// the URL has been built, so an unsupported kind is reported together with
// the URL it would have produced.
func (c *SandboxClient) ViewFile(ctx context.Context, ref api.HashRef) (any, error) {
	if err := api.ValidateHash(ref); err != nil {
		return nil, err
	}

	apiURL := c.url("/files/view/" + string(ref.Kind) + "/" + ref.Value)
	if err := api.ValidateHashKind(ref.Kind, apiURL); err != nil {
		return nil, err
	}
	return c.getJSON(ctx, EndpointViewFile, apiURL)
}

// DownloadSample downloads a sample by its SHA256 hash to dst, which must
// not exist. Use strconv.Itoa to pass a numeric identifier. An empty hash
// fails with an invalid_argument error before any request is sent.
func (c *SandboxClient) DownloadSample(ctx context.Context, hash, dst string) (int64, error) {
	if hash == "" {
		return 0, api.NewInvalidArgumentError("hash", "hash not available or invalid")
	}
	if err := checkDestination(dst); err != nil {
		return 0, err
	}
	return c.download(ctx, EndpointDownloadSample, c.url("/files/get/"+hash), dst)
}
