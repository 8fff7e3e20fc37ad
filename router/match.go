package router

import "strings"

// Params holds the values captured by :name segments of a matched
// pattern, keyed by segment name without the colon.
type Params map[string]string

type route struct {
	pattern  string
	segments []string
	handler  Handler
}

// matchPath reports whether path satisfies the route's pattern. A match
// requires the same segment count, literal segments equal byte for byte,
// and :name segments capturing whatever the path carries at that
// position.
func (r route) matchPath(path string) (Params, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != len(r.segments) {
		return nil, false
	}

	params := Params{}
	for i, seg := range r.segments {
		if strings.HasPrefix(seg, ":") {
			params[seg[1:]] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}
	return params, true
}

func newRoute(pattern string, handler Handler) route {
	return route{
		pattern:  pattern,
		segments: strings.Split(pattern, "/"),
		handler:  handler,
	}
}
