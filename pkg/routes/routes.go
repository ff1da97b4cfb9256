// Package routes declares handler route tables and registers them on a
// ServeMux using Go 1.22 method patterns.
package routes

import "net/http"

// Route is one "METHOD pattern" binding. Pattern is relative to the
// enclosing group and may be empty for the group root.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group is a handler's route table. Children nest beneath Prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register mounts every route in groups on mux and returns the full
// patterns in registration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	var walk func(prefix string, g Group)
	walk = func(prefix string, g Group) {
		prefix += g.Prefix
		for _, r := range g.Routes {
			pattern := r.Method + " " + prefix + r.Pattern
			mux.HandleFunc(pattern, r.Handler)
			patterns = append(patterns, pattern)
		}
		for _, child := range g.Children {
			walk(prefix, child)
		}
	}
	for _, g := range groups {
		walk("", g)
	}
	return patterns
}
