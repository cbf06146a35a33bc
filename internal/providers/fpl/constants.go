package fpl

import "time"

const (
	providerName       = "fpl"
	defaultBaseURL     = "https://fantasy.premierleague.com/api"
	defaultUserAgent   = "epl-fixtures-service"
	defaultHTTPTimeout = 10 * time.Second
	// maxBodyBytes bounds a single upstream payload.
	maxBodyBytes = 10 << 20
)

// Name identifies this provider in logs and metrics.
const Name = providerName
