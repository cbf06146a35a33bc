package fpl

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripperFunc) *Client {
	return NewClient(Config{
		BaseURL:    "http://example.com/api/",
		HTTPClient: &http.Client{Transport: rt},
	})
}

func response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}
}

func TestFetchReturnsBodyAndValidators(t *testing.T) {
	var captured *http.Request
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		captured = req
		h := make(http.Header)
		h.Set("ETag", `"v2"`)
		h.Set("Last-Modified", "Sat, 17 Aug 2024 12:00:00 GMT")
		return response(http.StatusOK, `[{"id":1}]`, h), nil
	})

	resp, err := client.Fetch(context.Background(), providers.Request{
		Key:             providers.KeyFixtures,
		IfNoneMatch:     `"v1"`,
		IfModifiedSince: "Fri, 16 Aug 2024 12:00:00 GMT",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if captured.URL.String() != "http://example.com/api/fixtures/" {
		t.Fatalf("unexpected url %s", captured.URL)
	}
	if captured.Header.Get("If-None-Match") != `"v1"` || captured.Header.Get("If-Modified-Since") == "" {
		t.Fatalf("expected conditional headers, got %v", captured.Header)
	}
	if captured.Header.Get("User-Agent") != defaultUserAgent {
		t.Fatalf("expected default user agent, got %s", captured.Header.Get("User-Agent"))
	}
	if string(resp.Body) != `[{"id":1}]` || resp.ETag != `"v2"` || resp.LastModified == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.NotModified() {
		t.Fatalf("expected 200 not to be reported as not modified")
	}
}

func TestFetchGameweekQuery(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/fixtures/" || req.URL.Query().Get("event") != "5" {
			t.Fatalf("unexpected request %s", req.URL)
		}
		return response(http.StatusOK, `[]`, nil), nil
	})
	if _, err := client.Fetch(context.Background(), providers.Request{Key: providers.GameweekKey(5)}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestFetchNotModifiedKeepsValidators(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return response(http.StatusNotModified, "", nil), nil
	})
	resp, err := client.Fetch(context.Background(), providers.Request{Key: providers.KeyBootstrap, IfNoneMatch: `"v1"`})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !resp.NotModified() || resp.Body != nil || resp.ETag != `"v1"` {
		t.Fatalf("unexpected 304 response %+v", resp)
	}
}

func TestFetchNon200ReturnsUpstreamError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		h := make(http.Header)
		h.Set("Retry-After", "7")
		return response(http.StatusTooManyRequests, "slow down", h), nil
	})
	_, err := client.Fetch(context.Background(), providers.Request{Key: providers.KeyFixtures})
	up, ok := providers.AsUpstreamError(err)
	if !ok {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if up.Status != 429 || up.RetryAfter != 7*time.Second || up.Endpoint != "/fixtures/" {
		t.Fatalf("unexpected upstream error %+v", up)
	}
	if !strings.Contains(up.Error(), "slow down") {
		t.Fatalf("expected body in message, got %s", up.Error())
	}
}

func TestFetchTransportFailureIsNetworkError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})
	_, err := client.Fetch(context.Background(), providers.Request{Key: providers.KeyFixtures})
	var netErr *providers.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !providers.IsRetryable(err) {
		t.Fatalf("expected network error to be retryable")
	}
}

func TestFetchCanceledContextIsNotNetworkError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Fetch(ctx, providers.Request{Key: providers.KeyFixtures})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	var netErr *providers.NetworkError
	if errors.As(err, &netErr) {
		t.Fatalf("expected cancellation not to be wrapped as network error")
	}
}

func TestFetchUnknownKey(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request")
		return nil, nil
	})
	if _, err := client.Fetch(context.Background(), providers.Request{Key: "standings"}); !errors.Is(err, providers.ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
}

func TestClientImplementsSource(t *testing.T) {
	var _ providers.Source = (*Client)(nil)
}
