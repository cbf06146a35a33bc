// Package bundled ships a static copy of the upstream payloads inside the
// binary. It is the last fallback when neither the network nor the cache can
// answer, and doubles as an offline Source for local development.
package bundled

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
)

// Version identifies the embedded data set.
const Version = "2024-25-gw2"

//go:embed data/fixtures.json data/bootstrap-static.json
var files embed.FS

// Snapshot serves the embedded payloads by resource key.
type Snapshot struct {
	fixtures  []byte
	bootstrap []byte
}

// New loads the embedded payloads.
func New() *Snapshot {
	return &Snapshot{
		fixtures:  mustRead("data/fixtures.json"),
		bootstrap: mustRead("data/bootstrap-static.json"),
	}
}

func mustRead(name string) []byte {
	data, err := files.ReadFile(name)
	if err != nil {
		panic("bundled: missing embedded file " + name)
	}
	return data
}

// Lookup returns a copy of the payload for key. Gameweek keys are answered by
// filtering the full fixture list.
func (s *Snapshot) Lookup(key string) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	switch key {
	case providers.KeyFixtures:
		return bytes.Clone(s.fixtures), true
	case providers.KeyBootstrap:
		return bytes.Clone(s.bootstrap), true
	}

	_, query, err := providers.Endpoint(key)
	if err != nil {
		return nil, false
	}
	event, err := strconv.Atoi(query.Get("event"))
	if err != nil {
		return nil, false
	}
	filtered, err := filterByEvent(s.fixtures, event)
	if err != nil {
		return nil, false
	}
	return filtered, true
}

func filterByEvent(data []byte, event int) (json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var head struct {
			Event *int `json:"event"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			continue
		}
		if head.Event != nil && *head.Event == event {
			out = append(out, item)
		}
	}
	return json.Marshal(out)
}

// ETag is the validator reported for every embedded payload.
func ETag() string {
	return `"bundled-` + Version + `"`
}

// Fetch implements providers.Source so the service can run fully offline.
func (s *Snapshot) Fetch(ctx context.Context, req providers.Request) (providers.Response, error) {
	if err := ctx.Err(); err != nil {
		return providers.Response{}, err
	}
	data, ok := s.Lookup(req.Key)
	if !ok {
		return providers.Response{}, &providers.UpstreamError{
			Status:   http.StatusNotFound,
			Endpoint: req.Key,
			Message:  "bundled: no snapshot for key",
		}
	}
	if req.IfNoneMatch == ETag() {
		return providers.Response{StatusCode: http.StatusNotModified, ETag: ETag()}, nil
	}
	return providers.Response{StatusCode: http.StatusOK, Body: data, ETag: ETag()}, nil
}
