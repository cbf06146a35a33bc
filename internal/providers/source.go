package providers

import (
	"context"
	"net/http"
	"time"
)

// Request is one conditional GET against the upstream for a resource key.
type Request struct {
	Key             string
	IfNoneMatch     string
	IfModifiedSince string
}

// Response carries the raw upstream reply. Body is nil for 304 responses.
type Response struct {
	StatusCode   int
	Body         []byte
	ETag         string
	LastModified string
	Duration     time.Duration
}

// NotModified reports whether the upstream confirmed the cached copy.
func (r Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// Source performs raw upstream requests. Implementations return a Response for
// 200 and 304, a *NetworkError for transport failures and an *UpstreamError
// for any other status.
type Source interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) (Response, error)

func (f SourceFunc) Fetch(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
