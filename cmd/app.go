package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"latke.GO/config"
	"latke.GO/core/environment"
	"latke.GO/core/logging"
	"latke.GO/cron"
	"latke.GO/ioc"
	"latke.GO/model/repository"
	"latke.GO/server"
	"latke.GO/servlet"
	"latke.GO/session"
)

// Names of the runtime instances every bean can depend on.
const (
	BeanRuntimeEnv  = "runtimeEnv"
	BeanDataHandles = "dataHandles"
	BeanLogger      = "logger"
)

// application is the wired runtime behind serve.
type application struct {
	cfg      *config.Config
	env      *environment.Env
	jobs     *cron.Service
	tracker  *session.Tracker
	listener *servlet.Listener
	server   *server.Server
}

func newApplication(cfg *config.Config, log *zap.Logger) (*application, error) {
	locale, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("config: bad LOCALE %q: %w", cfg.Locale, err)
	}

	log = logging.OrNop(log)
	a := &application{cfg: cfg}
	a.env = environment.New(cfg, log)
	guard := repository.NewGuard(a.env)

	var store session.Store = session.NewMemoryStore()
	if rdb := a.env.Redis(); rdb != nil {
		store = session.NewRedisStore(rdb, cfg.AppName+":sessions")
	}
	a.tracker = session.NewTracker(store, session.Options{
		TTL:    cfg.Session.TTL,
		Cookie: cfg.Session.Cookie,
		OnCreated: func(ctx context.Context, s session.Session) error {
			return a.listener.OnSessionStart(ctx, s)
		},
		OnDestroyed: func(ctx context.Context, s session.Session) {
			a.listener.OnSessionEnd(ctx, s)
		},
		Logger: log,
	})

	a.jobs = cron.NewService(log)
	if cfg.Session.Sweep != "" {
		if err := a.jobs.Add("session-sweep", cfg.Session.Sweep, func(ctx context.Context, _ ...string) error {
			n, err := a.tracker.Sweep(ctx)
			if n > 0 {
				log.Debug("Expired sessions swept", zap.Int("count", n))
			}
			return err
		}); err != nil {
			return nil, err
		}
	}

	container := ioc.NewContainer(
		ioc.WithSettings(cfg.Components),
		ioc.WithInstance(BeanRuntimeEnv, a.env),
		ioc.WithInstance(BeanDataHandles, guard),
		ioc.WithInstance(BeanLogger, log),
	)

	a.listener = servlet.NewListener(servlet.Deps{
		Env:        a.env,
		Discoverer: ioc.NewDiscoverer(nil),
		Container:  container,
		Routes:     servlet.Processors{},
		Jobs:       a.jobs,
		Guard:      guard,
	}, servlet.WithLocale(locale), servlet.WithLogger(log))

	a.server = server.New(cfg, a.listener, a.tracker, log)
	return a, nil
}
