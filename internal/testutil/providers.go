package testutil

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers/bundled"
)

// BundledSource serves the embedded snapshot as if it were the upstream.
func BundledSource() providers.Source {
	return bundled.New()
}

// JSONSource answers every key from payloads with a 200. Unknown keys get a 404.
func JSONSource(payloads map[string]string) providers.Source {
	return providers.SourceFunc(func(ctx context.Context, req providers.Request) (providers.Response, error) {
		if err := ctx.Err(); err != nil {
			return providers.Response{}, &providers.NetworkError{Endpoint: req.Key, Err: err}
		}
		body, ok := payloads[req.Key]
		if !ok {
			return providers.Response{}, &providers.UpstreamError{Status: http.StatusNotFound, Endpoint: req.Key}
		}
		return providers.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
	})
}

// ErrSource always fails with err.
func ErrSource(err error) providers.Source {
	return providers.SourceFunc(func(context.Context, providers.Request) (providers.Response, error) {
		return providers.Response{}, err
	})
}

// CountingSource wraps next and counts upstream calls.
type CountingSource struct {
	Next  providers.Source
	Calls atomic.Int32
}

func (s *CountingSource) Fetch(ctx context.Context, req providers.Request) (providers.Response, error) {
	s.Calls.Add(1)
	return s.Next.Fetch(ctx, req)
}
