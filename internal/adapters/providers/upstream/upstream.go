// Package upstream holds the HTTP plumbing shared by every adapter that talks
// to a public geodata API.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

const (
	// DefaultTimeout bounds a single upstream call when the adapter has no timeout configured
	DefaultTimeout   = 8 * time.Second
	maxResponseBytes = 8 << 20
)

// NewHTTPClient returns client when non-nil, otherwise a client with the given timeout
func NewHTTPClient(client *http.Client, timeout time.Duration) *http.Client {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// DoJSON executes req and decodes the body into out, converting every failure
// into a ProviderError tagged with the provider name.
func DoJSON(ctx context.Context, client *http.Client, provider string, req *http.Request, out any) error {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperrors.NewProviderError(provider, "request timed out", err)
		}
		return apperrors.NewProviderError(provider, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return apperrors.NewProviderStatusError(provider, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		provErr := apperrors.NewProviderError(provider, "unrecognized response", err)
		provErr.StatusCode = resp.StatusCode
		return provErr
	}
	return nil
}

// Unrecognized reports a decodable payload whose shape the parser cannot use
func Unrecognized(provider, format string, args ...any) error {
	return apperrors.NewProviderError(provider, "unrecognized response: "+fmt.Sprintf(format, args...), nil)
}
