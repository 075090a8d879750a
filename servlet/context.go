package servlet

import (
	"context"
	"net/http"
	"path/filepath"

	"golang.org/x/text/language"

	"latke.GO/config"
	"latke.GO/ioc"
	"latke.GO/session"
)

// Environment is the runtime environment the listener initializes.
type Environment interface {
	InitRuntimeEnv(ctx context.Context) error
	SetLocale(tag language.Tag)
	Locale() language.Tag
	Mode() config.Mode
	ScanPath() string
	RunsWithRelationalBackend() bool
	Shutdown(ctx context.Context) error
}

// Discoverer finds bean descriptors under a scan path.
type Discoverer interface {
	Discover(scanPath string) ([]ioc.Descriptor, error)
}

// Container builds the bean graph.
type Container interface {
	StartApplication(ctx context.Context, descs []ioc.Descriptor) error
	BeanManager() *ioc.BeanManager
	Shutdown(ctx context.Context) error
}

// RouteBuilder turns request processor beans into a dispatch table.
type RouteBuilder interface {
	BuildProcessorMethods(beans []*ioc.Bean) (*DispatchTable, error)
}

// JobService runs background jobs between start and stop.
type JobService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// DataHandleGuard releases the request-scoped data handle.
type DataHandleGuard interface {
	Dispose(ctx context.Context) error
}

// HostContext is what the host container exposes at context start.
type HostContext interface {
	// RealPath maps a context-relative path to the filesystem.
	RealPath(path string) string
	ContextPath() string
}

// StaticHost is a HostContext rooted at a fixed directory. Servers and
// test harnesses supply it explicitly.
type StaticHost struct {
	Root string
	Path string
}

// RealPath implements HostContext.
func (h StaticHost) RealPath(path string) string {
	if h.Root == "" {
		return ""
	}
	return filepath.Join(h.Root, filepath.FromSlash(path))
}

// ContextPath implements HostContext.
func (h StaticHost) ContextPath() string {
	return h.Path
}

// RuntimeContext is the immutable view of the started application handed
// to hooks.
type RuntimeContext struct {
	// WebRoot is absolute and ends with the path separator.
	WebRoot     string
	ContextPath string
	Mode        config.Mode
	Locale      language.Tag
}

// WebHooks is implemented by the web tier to handle request and session
// events once the application is running.
type WebHooks interface {
	RequestInitialized(ctx context.Context, rtx *RuntimeContext, r *http.Request) error
	SessionCreated(ctx context.Context, rtx *RuntimeContext, s session.Session) error
	SessionDestroyed(ctx context.Context, rtx *RuntimeContext, s session.Session)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) RequestInitialized(context.Context, *RuntimeContext, *http.Request) error {
	return nil
}

func (NopHooks) SessionCreated(context.Context, *RuntimeContext, session.Session) error {
	return nil
}

func (NopHooks) SessionDestroyed(context.Context, *RuntimeContext, session.Session) {}
