package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"latke.GO/core/logging"
	"latke.GO/core/metrics"
)

// Options configures a Tracker.
type Options struct {
	TTL    time.Duration
	Cookie string
	// OnCreated runs when a request carries no known session.
	OnCreated func(ctx context.Context, s Session) error
	// OnDestroyed runs on invalidation and on expiry.
	OnDestroyed func(ctx context.Context, s Session)
	Logger      *zap.Logger
}

// Tracker issues session cookies and fires the session hooks.
type Tracker struct {
	store Store
	opts  Options
	log   *zap.Logger
	now   func() time.Time
}

// NewTracker returns a Tracker over store.
func NewTracker(store Store, opts Options) *Tracker {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Cookie == "" {
		opts.Cookie = "LATKE_SESSION"
	}
	return &Tracker{store: store, opts: opts, log: logging.OrNop(opts.Logger).Named("session"), now: time.Now}
}

type sessionKey struct{}

// FromContext returns the session attached by the middleware.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Touch extends the session id. An empty or unknown id is never adopted:
// a fresh id is minted and reported as created.
func (t *Tracker) Touch(ctx context.Context, id string) (Session, bool, error) {
	expires := t.now().Add(t.opts.TTL)
	if id != "" {
		created, err := t.store.Touch(ctx, id, expires)
		if err != nil {
			return Session{}, false, err
		}
		if !created {
			return Session{ID: id, Expires: expires}, false, nil
		}
		if _, err := t.store.Remove(ctx, id); err != nil {
			return Session{}, false, err
		}
	}

	s := Session{ID: uuid.NewString(), Expires: expires}
	if _, err := t.store.Touch(ctx, s.ID, expires); err != nil {
		return Session{}, false, err
	}
	metrics.SessionsActive.Inc()
	if t.opts.OnCreated != nil {
		if err := t.opts.OnCreated(ctx, s); err != nil {
			metrics.SessionsActive.Dec()
			if _, rerr := t.store.Remove(ctx, s.ID); rerr != nil {
				t.log.Warn("Session removal after rejected creation", zap.Error(rerr))
			}
			return Session{}, false, err
		}
	}
	return s, true, nil
}

// Middleware attaches a session to every request.
func (t *Tracker) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id string
			if ck, err := c.Cookie(t.opts.Cookie); err == nil {
				id = ck.Value
			}
			req := c.Request()
			s, _, err := t.Touch(req.Context(), id)
			if err != nil {
				t.log.Error("Session touch failed", zap.Error(err))
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
			}
			c.SetCookie(&http.Cookie{
				Name:     t.opts.Cookie,
				Value:    s.ID,
				Path:     "/",
				Expires:  s.Expires,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), sessionKey{}, s)))
			return next(c)
		}
	}
}

// Invalidate ends the session id now.
func (t *Tracker) Invalidate(ctx context.Context, id string) error {
	ok, err := t.store.Remove(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		t.destroyed(ctx, Session{ID: id, Expires: t.now()})
	}
	return nil
}

// Sweep ends every expired session. It runs as a background job.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	expired, err := t.store.Expired(ctx, t.now())
	for _, s := range expired {
		t.destroyed(ctx, s)
	}
	return len(expired), err
}

func (t *Tracker) destroyed(ctx context.Context, s Session) {
	metrics.SessionsActive.Dec()
	if t.opts.OnDestroyed != nil {
		t.opts.OnDestroyed(ctx, s)
	}
}
