// Package ioc discovers registered components and builds them into a
// resolved object graph.
package ioc

import (
	"reflect"
	"runtime"
	"strings"
	"sync"

	"latke.GO/core/registry"
)

// Marker is a capability a bean declares when it is registered.
type Marker string

const (
	// RequestProcessor marks beans that contribute routes to the dispatch table.
	RequestProcessor Marker = "request-processor"
)

// Factory builds a bean instance. Dependencies are fetched from r.
type Factory func(r *Resolver) (interface{}, error)

// Descriptor describes one registrable component.
type Descriptor struct {
	// Name is the unique bean name.
	Name string
	// Package is the Go import path the bean belongs to. When empty it is
	// derived from the factory symbol.
	Package string
	// Depends lists bean names that must be built first.
	Depends []string
	// Markers are the capabilities the bean participates in.
	Markers []Marker
	New     Factory
}

// Has reports whether d carries m.
func (d Descriptor) Has(m Marker) bool {
	for _, dm := range d.Markers {
		if dm == m {
			return true
		}
	}
	return false
}

// PackagePath returns d.Package or, when unset, the package of the
// factory function.
func (d Descriptor) PackagePath() string {
	if d.Package != "" || d.New == nil {
		return d.Package
	}
	fn := runtime.FuncForPC(reflect.ValueOf(d.New).Pointer())
	if fn == nil {
		return ""
	}
	return packageOf(fn.Name())
}

// packageOf strips the symbol from a fully qualified function name, e.g.
// "latke.GO/custom.newGreeting.func1" -> "latke.GO/custom".
func packageOf(symbol string) string {
	slash := strings.LastIndex(symbol, "/")
	dot := strings.Index(symbol[slash+1:], ".")
	if dot < 0 {
		return symbol
	}
	return symbol[:slash+1+dot]
}

var mu sync.Mutex

// Register adds a bean descriptor. Call from init(). Panics on duplicate
// names or when the registry was locked by discovery.
func Register(d Descriptor) {
	mu.Lock()
	defer mu.Unlock()
	if registry.GlobalRegistry.IsLocked(registry.KeyRegistryBeans) {
		panic("ioc/registry: locked (register only during init before discovery)")
	}
	beans := getBeans()
	if _, ok := beans[d.Name]; ok {
		panic("ioc/registry: duplicate bean " + d.Name)
	}
	beans[d.Name] = d
	registry.GlobalRegistry.SetGlobal(registry.KeyRegistryBeans, beans)
}

// Unregister removes a descriptor (for tests).
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	registry.GlobalRegistry.UnlockForTesting(registry.KeyRegistryBeans)
	beans := getBeans()
	delete(beans, name)
	registry.GlobalRegistry.SetGlobal(registry.KeyRegistryBeans, beans)
}

func getBeans() map[string]Descriptor {
	if v, ok := registry.GlobalRegistry.GetGlobal(registry.KeyRegistryBeans); ok && v != nil {
		return v.(map[string]Descriptor)
	}
	return make(map[string]Descriptor)
}

// Catalog is a source of candidate descriptors.
type Catalog interface {
	Descriptors() []Descriptor
}

// StaticCatalog is a fixed descriptor list.
type StaticCatalog []Descriptor

// Descriptors implements Catalog.
func (c StaticCatalog) Descriptors() []Descriptor {
	return c
}

type registeredCatalog struct{}

// Registered is the catalog of descriptors added through Register.
// Reading it locks the bean registry.
var Registered Catalog = registeredCatalog{}

func (registeredCatalog) Descriptors() []Descriptor {
	mu.Lock()
	defer mu.Unlock()
	beans := getBeans()
	out := make([]Descriptor, 0, len(beans))
	for _, d := range beans {
		out = append(out, d)
	}
	registry.GlobalRegistry.Lock(registry.KeyRegistryBeans)
	return out
}
