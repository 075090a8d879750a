package servlet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"latke.GO/core/logging"
	"latke.GO/core/metrics"
	"latke.GO/core/stopwatch"
	"latke.GO/ioc"
	"latke.GO/session"
)

// DefaultLocale is set on the runtime environment unless WithLocale says
// otherwise.
var DefaultLocale = language.MustParse("zh-CN")

// Timed bootstrap phases.
const (
	PhaseInitContainer   = "Init IoC container"
	PhaseDiscover        = "Discover bean classes"
	PhaseCreateBeans     = "Create beans"
	PhaseBuildProcessors = "Build processor methods"
)

// Deps are the collaborators a Listener orchestrates.
type Deps struct {
	Env        Environment
	Discoverer Discoverer
	Container  Container
	Routes     RouteBuilder
	Jobs       JobService
	// Guard is required when Env runs with a relational backend.
	Guard DataHandleGuard
}

// Option configures a Listener.
type Option func(*Listener)

// WithLocale overrides DefaultLocale.
func WithLocale(tag language.Tag) Option {
	return func(l *Listener) { l.locale = tag }
}

// WithRecorder sets the timing recorder used during bootstrap.
func WithRecorder(r *stopwatch.Recorder) Option {
	return func(l *Listener) { l.rec = r }
}

// WithHooks sets the web tier hook implementation.
func WithHooks(h WebHooks) Option {
	return func(l *Listener) { l.hooks = h }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Listener) { l.log = log }
}

// Listener receives host lifecycle events.
//
// Context start and stop are serialized. Request and session hooks only
// read atomically published state, so the host must not dispatch them
// before OnContextStart returns nil or after OnContextStop begins; hooks
// fired outside Running return ErrNotRunning.
type Listener struct {
	deps   Deps
	locale language.Tag
	rec    *stopwatch.Recorder
	hooks  WebHooks
	log    *zap.Logger

	mu    sync.Mutex
	state atomic.Int32
	rtx   atomic.Pointer[RuntimeContext]
	table atomic.Pointer[DispatchTable]
}

// NewListener returns an Uninitialized listener.
func NewListener(deps Deps, opts ...Option) *Listener {
	l := &Listener{
		deps:   deps,
		locale: DefaultLocale,
		hooks:  NopHooks{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.rec == nil {
		l.rec = stopwatch.New()
	}
	l.log = logging.OrNop(l.log).Named("servlet")
	return l
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

func (l *Listener) setState(s State) {
	l.state.Store(int32(s))
}

// WebRoot returns the absolute web root with a trailing separator, or ""
// before context start resolved it.
func (l *Listener) WebRoot() string {
	if rtx := l.rtx.Load(); rtx != nil {
		return rtx.WebRoot
	}
	return ""
}

// RuntimeContext returns the runtime context, or nil before context start
// resolved it.
func (l *Listener) RuntimeContext() *RuntimeContext {
	return l.rtx.Load()
}

// DispatchTable returns the built table, or nil before Running.
func (l *Listener) DispatchTable() *DispatchTable {
	return l.table.Load()
}

// OnContextStart bootstraps the application. It returns nil only once the
// listener is Running; any failure leaves it Destroyed.
func (l *Listener) OnContextStart(ctx context.Context, host HostContext) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s := l.State(); s != Uninitialized {
		return &StateError{Op: "context start", State: s}
	}
	l.setState(Initializing)
	l.log.Info("Initializing the context")
	start := time.Now()

	env := l.deps.Env
	if err := env.InitRuntimeEnv(ctx); err != nil {
		l.log.Error("Runtime environment initialization failed", zap.Error(err))
		l.setState(Destroyed)
		return &BootstrapError{Phase: "runtime env", Cause: err}
	}

	if env.RunsWithRelationalBackend() && l.deps.Guard == nil {
		return l.abort(ctx, "data handles", errors.New("relational backend configured without a data handle guard"))
	}

	env.SetLocale(l.locale)

	rtx, err := newRuntimeContext(host, env)
	if err != nil {
		return l.abort(ctx, "web root", err)
	}
	l.rtx.Store(rtx)
	l.log.Debug("Web root resolved", zap.String("web_root", rtx.WebRoot), zap.String("context_path", rtx.ContextPath))

	l.rec.Start(PhaseInitContainer)

	l.rec.Start(PhaseDiscover)
	descs, err := l.deps.Discoverer.Discover(env.ScanPath())
	if err != nil {
		return l.abort(ctx, "discovery", err)
	}
	if err := l.rec.End(); err != nil {
		return l.abort(ctx, "timing", err)
	}

	l.rec.Start(PhaseCreateBeans)
	if err := l.deps.Container.StartApplication(ctx, descs); err != nil {
		return l.abort(ctx, "container", err)
	}
	if err := l.rec.End(); err != nil {
		return l.abort(ctx, "timing", err)
	}

	processors := l.deps.Container.BeanManager().Beans(ioc.RequestProcessor)

	l.rec.Start(PhaseBuildProcessors)
	table, err := l.deps.Routes.BuildProcessorMethods(processors)
	if err != nil {
		return l.abort(ctx, "route table", err)
	}
	if err := l.rec.End(); err != nil {
		return l.abort(ctx, "timing", err)
	}

	if err := l.rec.End(); err != nil {
		return l.abort(ctx, "timing", err)
	}
	l.log.Debug("Bootstrap timing", zap.String("stopwatch", l.rec.Report()))
	metrics.ObserveBootstrap(l.rec.Frames())
	l.rec.Release()

	// jobs may read the table as soon as they start
	l.table.Store(table)
	if err := l.deps.Jobs.Start(ctx); err != nil {
		return l.abort(ctx, "job service", err)
	}

	l.setState(Running)
	l.log.Info("Context initialized",
		zap.Int("beans", l.deps.Container.BeanManager().Len()),
		zap.Int("routes", table.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// abort releases the timing stack and whatever was initialized, then
// marks the listener Destroyed.
func (l *Listener) abort(ctx context.Context, phase string, cause error) error {
	l.log.Error("Context initialization failed", zap.String("phase", phase), zap.Error(cause))
	l.rec.EndAll()
	l.rec.Release()
	l.table.Store(nil)
	if err := l.deps.Container.Shutdown(ctx); err != nil {
		l.log.Warn("Container shutdown after failed start", zap.Error(err))
	}
	if err := l.deps.Env.Shutdown(ctx); err != nil {
		l.log.Warn("Runtime teardown after failed start", zap.Error(err))
	}
	l.setState(Destroyed)
	return &BootstrapError{Phase: phase, Cause: cause}
}

func newRuntimeContext(host HostContext, env Environment) (*RuntimeContext, error) {
	if host == nil {
		return nil, errors.New("no host context")
	}
	dir := host.RealPath("")
	if dir == "" {
		return nil, errors.New("host has no real path for the web root")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve web root %q: %w", dir, err)
	}
	if !strings.HasSuffix(abs, string(os.PathSeparator)) {
		abs += string(os.PathSeparator)
	}
	return &RuntimeContext{
		WebRoot:     abs,
		ContextPath: host.ContextPath(),
		Mode:        env.Mode(),
		Locale:      env.Locale(),
	}, nil
}

// OnContextStop stops background jobs, shuts the container down and tears
// the runtime down, in that order. Every step runs and failures are
// joined. It is a no-op unless the listener is Running.
func (l *Listener) OnContextStop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.State() != Running {
		return nil
	}
	l.setState(Destroyed)
	l.log.Info("Destroying the context")

	var errs []error
	if err := l.deps.Jobs.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop jobs: %w", err))
	}
	if err := l.deps.Container.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown container: %w", err))
	}
	if err := l.deps.Env.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown runtime: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		l.log.Error("Context destroyed with errors", zap.Error(err))
	} else {
		l.log.Info("Context destroyed")
	}
	return err
}

// OnRequestStart delegates to WebHooks.RequestInitialized.
func (l *Listener) OnRequestStart(ctx context.Context, r *http.Request) error {
	rtx, err := l.running("request start")
	if err != nil {
		return err
	}
	return l.hooks.RequestInitialized(ctx, rtx, r)
}

// OnRequestEnd releases the request-scoped data handle when the runtime
// uses a relational backend. It never fails; cleanup errors are logged.
func (l *Listener) OnRequestEnd(ctx context.Context) {
	if l.deps.Env == nil || !l.deps.Env.RunsWithRelationalBackend() || l.deps.Guard == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Data handle disposal panicked", zap.Any("panic", r))
		}
	}()
	metrics.DataHandlesDisposed.Inc()
	if err := l.deps.Guard.Dispose(ctx); err != nil {
		l.log.Warn("Data handle disposal failed", zap.Error(err))
	}
}

// OnSessionStart delegates to WebHooks.SessionCreated.
func (l *Listener) OnSessionStart(ctx context.Context, s session.Session) error {
	rtx, err := l.running("session start")
	if err != nil {
		return err
	}
	return l.hooks.SessionCreated(ctx, rtx, s)
}

// OnSessionEnd delegates to WebHooks.SessionDestroyed.
func (l *Listener) OnSessionEnd(ctx context.Context, s session.Session) {
	rtx, err := l.running("session end")
	if err != nil {
		return
	}
	l.hooks.SessionDestroyed(ctx, rtx, s)
}

func (l *Listener) running(op string) (*RuntimeContext, error) {
	if s := l.State(); s != Running {
		l.log.Warn("Host dispatched outside the running state", zap.String("op", op), zap.Stringer("state", s))
		return nil, ErrNotRunning
	}
	return l.rtx.Load(), nil
}
