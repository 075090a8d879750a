package ioc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Booter is implemented by beans that need initialization after every
// dependency was built.
type Booter interface {
	OnBoot(ctx context.Context) error
}

// Shutdowner is implemented by beans holding resources released at
// context stop.
type Shutdowner interface {
	OnShutdown(ctx context.Context) error
}

// Bean is one built component.
type Bean struct {
	Name     string
	Markers  []Marker
	Instance interface{}
}

// Has reports whether b carries m.
func (b *Bean) Has(m Marker) bool {
	for _, bm := range b.Markers {
		if bm == m {
			return true
		}
	}
	return false
}

// BeanManager answers capability queries over the built graph. It is
// immutable once returned by the container.
type BeanManager struct {
	byName map[string]*Bean
	order  []*Bean
}

// NewBeanManager returns a manager over beans in the given order.
func NewBeanManager(beans ...*Bean) *BeanManager {
	bm := &BeanManager{byName: make(map[string]*Bean, len(beans))}
	for _, b := range beans {
		bm.byName[b.Name] = b
		bm.order = append(bm.order, b)
	}
	return bm
}

// Beans returns the beans registered with m, sorted by name.
func (bm *BeanManager) Beans(m Marker) []*Bean {
	if bm == nil {
		return nil
	}
	var out []*Bean
	for _, b := range bm.order {
		if b.Has(m) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Bean returns the bean named name.
func (bm *BeanManager) Bean(name string) (*Bean, bool) {
	if bm == nil {
		return nil, false
	}
	b, ok := bm.byName[name]
	return b, ok
}

// Len returns the number of beans.
func (bm *BeanManager) Len() int {
	if bm == nil {
		return 0
	}
	return len(bm.order)
}

// Resolver is handed to factories while the graph is built.
type Resolver struct {
	bean     string
	depends  []string
	built    map[string]*Bean
	settings map[string]interface{}
}

// Get returns the instance of a bean listed in the caller's Depends.
// Undeclared names fail even when that bean was already built.
func (r *Resolver) Get(name string) (interface{}, error) {
	declared := false
	for _, d := range r.depends {
		if d == name {
			declared = true
			break
		}
	}
	b, ok := r.built[name]
	if !declared || !ok {
		return nil, &BindingNotFoundError{Bean: r.bean, Dependency: name}
	}
	return b.Instance, nil
}

// Settings decodes the bean's components.<name> configuration section
// into target. A missing section leaves target untouched.
func (r *Resolver) Settings(target interface{}) error {
	if len(r.settings) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(r.settings)
}

// Lookup is Get with a type assertion.
func Lookup[T any](r *Resolver, name string) (T, error) {
	var zero T
	v, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Bean:     name,
			Expected: fmt.Sprintf("%T", (*T)(nil))[1:],
			Got:      fmt.Sprintf("%T", v),
		}
	}
	return typed, nil
}

// Option configures a Container.
type Option func(*Container)

// WithSettings supplies per-bean settings keyed by bean name. Keys are
// matched case-insensitively, since config loaders lowercase them.
func WithSettings(s map[string]map[string]interface{}) Option {
	return func(c *Container) {
		c.settings = make(map[string]map[string]interface{}, len(s))
		for name, v := range s {
			c.settings[strings.ToLower(name)] = v
		}
	}
}

// WithInstance adds an externally owned bean that descriptors can depend
// on. The container never boots or shuts it down.
func WithInstance(name string, v interface{}) Option {
	return func(c *Container) {
		if c.provided == nil {
			c.provided = make(map[string]interface{})
		}
		c.provided[name] = v
	}
}

// Container builds descriptors into beans exactly once per process.
type Container struct {
	mu       sync.Mutex
	settings map[string]map[string]interface{}
	provided map[string]interface{}
	started  bool
	manager  *BeanManager
	order    []*Bean
}

// NewContainer returns an unstarted Container.
func NewContainer(opts ...Option) *Container {
	c := &Container{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartApplication builds every descriptor in dependency order, then boots
// the beans implementing Booter in the same order.
func (c *Container) StartApplication(ctx context.Context, descs []Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}

	all := make([]Descriptor, 0, len(descs)+len(c.provided))
	for _, d := range descs {
		if _, ext := c.provided[d.Name]; ext {
			return &DiscoveryError{Bean: d.Name, Reason: "name taken by a provided instance"}
		}
		all = append(all, d)
	}
	for name, v := range c.provided {
		v := v
		all = append(all, Descriptor{Name: name, New: func(*Resolver) (interface{}, error) { return v, nil }})
	}

	order, err := buildOrder(all)
	if err != nil {
		return err
	}

	built := make(map[string]*Bean, len(order))
	beans := make([]*Bean, 0, len(order))
	for _, d := range order {
		r := &Resolver{bean: d.Name, depends: d.Depends, built: built, settings: c.settings[strings.ToLower(d.Name)]}
		inst, err := d.New(r)
		if err != nil {
			return &InitializationError{Bean: d.Name, Err: err}
		}
		if inst == nil {
			return &InitializationError{Bean: d.Name, Err: errors.New("factory returned nil")}
		}
		b := &Bean{Name: d.Name, Markers: d.Markers, Instance: inst}
		built[d.Name] = b
		if _, ext := c.provided[d.Name]; ext {
			continue
		}
		beans = append(beans, b)
	}

	for i, b := range beans {
		booter, ok := b.Instance.(Booter)
		if !ok {
			continue
		}
		if err := booter.OnBoot(ctx); err != nil {
			// release what already booted
			_ = shutdownBeans(ctx, beans[:i])
			return &BootError{Bean: b.Name, Err: err}
		}
	}

	managed := make([]*Bean, 0, len(order))
	for _, d := range order {
		managed = append(managed, built[d.Name])
	}
	c.order = beans
	c.manager = NewBeanManager(managed...)
	c.started = true
	return nil
}

// BeanManager returns the built graph, or nil before StartApplication.
func (c *Container) BeanManager() *BeanManager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manager
}

// Shutdown calls OnShutdown on every Shutdowner bean in reverse build
// order. Every bean is visited; failures are joined. Calling it again is
// a no-op.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	beans := c.order
	c.order = nil
	c.mu.Unlock()
	return shutdownBeans(ctx, beans)
}

func shutdownBeans(ctx context.Context, beans []*Bean) error {
	var errs []error
	for i := len(beans) - 1; i >= 0; i-- {
		s, ok := beans[i].Instance.(Shutdowner)
		if !ok {
			continue
		}
		if err := s.OnShutdown(ctx); err != nil {
			errs = append(errs, &ShutdownError{Bean: beans[i].Name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// buildOrder sorts descs so every bean follows its dependencies. Ties are
// broken by name for a deterministic graph.
func buildOrder(descs []Descriptor) ([]Descriptor, error) {
	byName := make(map[string]Descriptor, len(descs))
	names := make([]string, 0, len(descs))
	for _, d := range descs {
		byName[d.Name] = d
		names = append(names, d.Name)
	}
	sort.Strings(names)

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(descs))
	order := make([]Descriptor, 0, len(descs))
	var chain []string

	var visit func(name, requiredBy string) error
	visit = func(name, requiredBy string) error {
		d, ok := byName[name]
		if !ok {
			return &BindingNotFoundError{Bean: requiredBy, Dependency: name}
		}
		switch state[name] {
		case done:
			return nil
		case visiting:
			return &CircularDependencyError{Chain: append(append([]string(nil), chain...), name)}
		}
		state[name] = visiting
		chain = append(chain, name)
		deps := append([]string(nil), d.Depends...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		chain = chain[:len(chain)-1]
		state[name] = done
		order = append(order, d)
		return nil
	}

	for _, n := range names {
		if err := visit(n, ""); err != nil {
			return nil, err
		}
	}
	return order, nil
}
