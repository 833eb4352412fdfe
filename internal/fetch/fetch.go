// Package fetch implements the network side of the pipelines: the fetch
// collaborator, the delay-endpoint URL and the labelled fetch operation.
package fetch

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks github.com/agbru/concfetch/internal/fetch Fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/agbru/concfetch/internal/errors"
)

// Fetcher retrieves the body of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// SlowURL builds the address of the delay-injecting endpoint: host answers
// after delayMillis milliseconds with the content of target.
func SlowURL(host string, delayMillis int, target string) string {
	return fmt.Sprintf("https://%s//https:/%d/%s", host, delayMillis, target)
}

// HTTPFetcher is a Fetcher backed by net/http. Requests have no timeout of
// their own; the context is the only bound.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher using client, or a default client when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{client: client}
}

// Fetch issues a GET request. Any failure, including a non-2xx status, is
// reported as an apperrors.NetworkError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, apperrors.NetworkError{URL: url, Cause: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NetworkError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.NetworkError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NetworkError{URL: url, StatusCode: resp.StatusCode, Cause: err}
	}
	return body, nil
}
