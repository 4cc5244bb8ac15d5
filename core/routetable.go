package core

// routeKey identifies a route by normalized method and full path.
type routeKey struct {
	method string
	path   string
}

// Route pairs a resolved handler with the descriptor it came from.
type Route struct {
	Descriptor *Descriptor
	Handler    Handler
}

// RouteTable is an immutable mapping from (method, full-path) to routes.
// It is built once by the registry builder and then only read; reloads
// publish a fresh table instead of mutating this one.
type RouteTable struct {
	routes map[routeKey]*Route
}

// Lookup returns the route for a method and path, if registered.
func (t *RouteTable) Lookup(method, path string) (*Route, bool) {
	route, ok := t.routes[routeKey{method: method, path: path}]
	return route, ok
}

// Len returns the number of registered routes.
func (t *RouteTable) Len() int {
	return len(t.routes)
}
