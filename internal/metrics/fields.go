package metrics

// Common metric attribute keys to keep telemetry consistent/searchable.
const (
	AttrMethod   = "method"
	AttrPath     = "path"
	AttrStatus   = "status"
	AttrProvider = "provider"
	AttrKey      = "key"
	AttrOrigin   = "origin"
	AttrFrom     = "from"
	AttrTo       = "to"
)
