package mongoql

import (
	"regexp"
	"strings"
)

// Route names a logical connection.
type Route string

const (
	Primary   Route = "primary"
	Secondary Route = "secondary"
)

// RouteHint is the caller's explicit routing choice for a read.
type RouteHint struct {
	// Primary forces the primary route.
	Primary bool
	// Name forces a named route.
	Name string
}

var routeNameRe = regexp.MustCompile(`(?i)^[a-z0-9_]+$`)

var readKinds = map[string]struct{}{
	"select":  {},
	"show":    {},
	"explain": {},
}

// SelectRoute picks the route of an operation. Reads go to the secondary
// unless the hint says otherwise; everything else goes to the primary.
// A malformed route name falls back to the primary.
func SelectRoute(kind string, hint RouteHint) Route {
	if _, ok := readKinds[strings.ToLower(kind)]; !ok {
		return Primary
	}

	switch {
	case hint.Name != "":
		if !routeNameRe.MatchString(hint.Name) {
			return Primary
		}
		return Route(strings.ToLower(hint.Name))
	case hint.Primary:
		return Primary
	default:
		return Secondary
	}
}
