package fpl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
)

// Config controls how the client reaches the Fantasy Premier League API.
type Config struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// Client issues conditional GETs against the FPL API and returns raw payloads.
// It does not retry; wrap it in providers.NewRetryingSource for that.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient httpDoer
	now        func() time.Time
}

// NewClient constructs an FPL client with the provided configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		userAgent:  resolveUserAgent(cfg.UserAgent),
		httpClient: resolveHTTPClient(cfg.HTTPClient),
		now:        time.Now,
	}
}

// Fetch performs one GET for the resource key. 200 and 304 return a Response;
// other statuses return *providers.UpstreamError and transport failures
// *providers.NetworkError.
func (c *Client) Fetch(ctx context.Context, r providers.Request) (providers.Response, error) {
	req, endpoint, err := c.buildRequest(ctx, r)
	if err != nil {
		return providers.Response{}, err
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return providers.Response{}, ctxErr
		}
		return providers.Response{}, &providers.NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	out := providers.Response{
		StatusCode:   resp.StatusCode,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return providers.Response{}, ctxErr
			}
			return providers.Response{}, &providers.NetworkError{Endpoint: endpoint, Err: readErr}
		}
		if len(body) > maxBodyBytes {
			return providers.Response{}, fmt.Errorf("fpl: %s payload exceeds %d bytes", endpoint, maxBodyBytes)
		}
		out.Body = body
	case http.StatusNotModified:
		// Validators may be omitted on 304; keep the ones we sent.
		if out.ETag == "" {
			out.ETag = r.IfNoneMatch
		}
		if out.LastModified == "" {
			out.LastModified = r.IfModifiedSince
		}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return providers.Response{}, &providers.UpstreamError{
			Status:     resp.StatusCode,
			Endpoint:   endpoint,
			RetryAfter: providers.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
			Message:    upstreamMessage(resp.StatusCode, body),
		}
	}
	out.Duration = c.now().Sub(start)
	return out, nil
}

func (c *Client) buildRequest(ctx context.Context, r providers.Request) (*http.Request, string, error) {
	path, query, err := providers.Endpoint(r.Key)
	if err != nil {
		return nil, "", err
	}
	endpoint := path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, endpoint, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.IfNoneMatch != "" {
		req.Header.Set("If-None-Match", r.IfNoneMatch)
	}
	if r.IfModifiedSince != "" {
		req.Header.Set("If-Modified-Since", r.IfModifiedSince)
	}
	return req, endpoint, nil
}

func upstreamMessage(status int, body []byte) string {
	msg := fmt.Sprintf("fpl: unexpected status %d", status)
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		msg += ": " + trimmed
	}
	return msg
}
