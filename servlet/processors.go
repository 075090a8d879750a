package servlet

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"latke.GO/ioc"
)

// Route is one request mapping contributed by a processor.
type Route struct {
	Method     string
	Path       string
	Name       string
	Handler    echo.HandlerFunc
	Middleware []echo.MiddlewareFunc
}

// RequestProcessor is implemented by beans registered with the
// ioc.RequestProcessor marker.
type RequestProcessor interface {
	Routes() []Route
}

// Mapping is a built route plus the bean that owns it.
type Mapping struct {
	Route
	Bean string
}

// DispatchTable maps method and path to handlers. It is immutable once
// built.
type DispatchTable struct {
	mappings []Mapping
	index    map[string]int
}

func routeKey(method, path string) string {
	return method + " " + path
}

// Len returns the number of mappings.
func (t *DispatchTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.mappings)
}

// Routes returns the mappings sorted by path and method.
func (t *DispatchTable) Routes() []Mapping {
	if t == nil {
		return nil
	}
	out := make([]Mapping, len(t.mappings))
	copy(out, t.mappings)
	return out
}

// Lookup finds the mapping registered for method and path pattern.
func (t *DispatchTable) Lookup(method, path string) (Mapping, bool) {
	if t == nil {
		return Mapping{}, false
	}
	i, ok := t.index[routeKey(strings.ToUpper(method), path)]
	if !ok {
		return Mapping{}, false
	}
	return t.mappings[i], true
}

// RouteAdder is satisfied by *echo.Echo and *echo.Group.
type RouteAdder interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
}

// Apply registers every mapping on r.
func (t *DispatchTable) Apply(r RouteAdder) {
	if t == nil {
		return
	}
	for _, m := range t.mappings {
		er := r.Add(m.Method, m.Path, m.Handler, m.Middleware...)
		if m.Name != "" {
			er.Name = m.Name
		}
	}
}

var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodConnect: true,
	http.MethodTrace:   true,
}

// Processors builds dispatch tables from request processor beans.
type Processors struct{}

// BuildProcessorMethods implements RouteBuilder. An empty bean list yields
// an empty table.
func (Processors) BuildProcessorMethods(beans []*ioc.Bean) (*DispatchTable, error) {
	t := &DispatchTable{index: make(map[string]int)}
	for _, b := range beans {
		p, ok := b.Instance.(RequestProcessor)
		if !ok {
			return nil, &RouteError{Bean: b.Name, Reason: "does not implement RequestProcessor"}
		}
		for _, r := range p.Routes() {
			r.Method = strings.ToUpper(r.Method)
			if !methods[r.Method] {
				return nil, &RouteError{Bean: b.Name, Method: r.Method, Path: r.Path, Reason: "unknown method"}
			}
			if !strings.HasPrefix(r.Path, "/") {
				return nil, &RouteError{Bean: b.Name, Method: r.Method, Path: r.Path, Reason: "path must start with /"}
			}
			if r.Handler == nil {
				return nil, &RouteError{Bean: b.Name, Method: r.Method, Path: r.Path, Reason: "nil handler"}
			}
			key := routeKey(r.Method, r.Path)
			if i, dup := t.index[key]; dup {
				return nil, &RouteError{Bean: b.Name, Method: r.Method, Path: r.Path, Reason: "already mapped by " + t.mappings[i].Bean}
			}
			t.index[key] = len(t.mappings)
			t.mappings = append(t.mappings, Mapping{Route: r, Bean: b.Name})
		}
	}
	sort.SliceStable(t.mappings, func(i, j int) bool {
		a, b := t.mappings[i], t.mappings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Method < b.Method
	})
	for i, m := range t.mappings {
		t.index[routeKey(m.Method, m.Path)] = i
	}
	return t, nil
}
