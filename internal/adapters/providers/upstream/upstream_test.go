package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

func TestDoJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"value": 7}`))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		case "/garbage":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	get := func(ctx context.Context, path string, out any) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+path, nil)
		require.NoError(t, err)
		return DoJSON(ctx, server.Client(), "test", req, out)
	}

	t.Run("decodes body", func(t *testing.T) {
		var out struct{ Value int }
		require.NoError(t, get(context.Background(), "/ok", &out))
		assert.Equal(t, 7, out.Value)
	})

	t.Run("non-2xx carries status", func(t *testing.T) {
		err := get(context.Background(), "/down", &struct{}{})
		provErr, ok := apperrors.AsProviderError(err)
		require.True(t, ok)
		assert.Equal(t, "test", provErr.Provider)
		assert.Equal(t, http.StatusServiceUnavailable, provErr.StatusCode)
	})

	t.Run("undecodable body", func(t *testing.T) {
		err := get(context.Background(), "/garbage", &struct{}{})
		provErr, ok := apperrors.AsProviderError(err)
		require.True(t, ok)
		assert.Contains(t, provErr.Message, "unrecognized")
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := get(ctx, "/slow", &struct{}{})
		provErr, ok := apperrors.AsProviderError(err)
		require.True(t, ok)
		assert.Equal(t, "request timed out", provErr.Message)
	})
}

func TestNewHTTPClient(t *testing.T) {
	custom := &http.Client{}
	assert.Same(t, custom, NewHTTPClient(custom, time.Second))
	assert.Equal(t, DefaultTimeout, NewHTTPClient(nil, 0).Timeout)
	assert.Equal(t, 2*time.Second, NewHTTPClient(nil, 2*time.Second).Timeout)
}
