package providers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Resource keys understood by every Source.
const (
	KeyFixtures  = "fixtures"
	KeyBootstrap = "bootstrap-static"

	gameweekPrefix = "fixtures-gw-"
)

// ErrUnknownResource is returned for keys that map to no upstream endpoint.
var ErrUnknownResource = errors.New("unknown resource key")

// GameweekKey returns the resource key for a single gameweek's fixtures.
func GameweekKey(event int) string {
	return gameweekPrefix + strconv.Itoa(event)
}

// Endpoint maps a resource key to its upstream path and query.
func Endpoint(key string) (string, url.Values, error) {
	switch {
	case key == KeyFixtures:
		return "/fixtures/", nil, nil
	case key == KeyBootstrap:
		return "/bootstrap-static/", nil, nil
	case strings.HasPrefix(key, gameweekPrefix):
		event, err := strconv.Atoi(strings.TrimPrefix(key, gameweekPrefix))
		if err != nil || event <= 0 {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownResource, key)
		}
		return "/fixtures/", url.Values{"event": []string{strconv.Itoa(event)}}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownResource, key)
	}
}
