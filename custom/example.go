// Package custom holds the components, jobs and commands this
// application contributes. Everything registers from init().
package custom

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"latke.GO/cmd"
	"latke.GO/core/environment"
	"latke.GO/cron"
	"latke.GO/ioc"
	visitEntity "latke.GO/model/entity/visit"
	"latke.GO/model/repository"
	visitRepo "latke.GO/model/repository/visit"
	"latke.GO/servlet"
	"latke.GO/session"
)

// Greeting formats greetings. Configured from components.greeting.
type Greeting struct {
	Prefix string `mapstructure:"prefix"`
	Suffix string `mapstructure:"suffix"`
}

func (g *Greeting) For(name string) string {
	return fmt.Sprintf("%s, %s%s", g.Prefix, name, g.Suffix)
}

type helloProcessor struct {
	greeting *Greeting
}

func (p *helloProcessor) Routes() []servlet.Route {
	return []servlet.Route{{
		Method: http.MethodGet,
		Path:   "/hello/:name",
		Name:   "hello",
		Handler: func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"message": p.greeting.For(c.Param("name"))})
		},
	}}
}

// visitsProcessor counts page visits in the relational backend.
type visitsProcessor struct {
	env   *environment.Env
	guard *repository.Guard
}

func (p *visitsProcessor) OnBoot(context.Context) error {
	if !p.env.RunsWithRelationalBackend() {
		return nil
	}
	return visitRepo.NewVisitRepository(p.env.DB()).Migrate()
}

func (p *visitsProcessor) Routes() []servlet.Route {
	return []servlet.Route{{
		Method:  http.MethodPost,
		Path:    "/visits",
		Name:    "visits",
		Handler: p.record,
	}}
}

func (p *visitsProcessor) record(c echo.Context) error {
	if !p.env.RunsWithRelationalBackend() {
		return echo.NewHTTPError(http.StatusNotImplemented, "no relational backend configured")
	}
	ctx := c.Request().Context()
	db, err := p.guard.Handle(ctx)
	if err != nil {
		return err
	}
	repo := visitRepo.NewVisitRepository(db)
	v := &visitEntity.PageVisit{Path: c.QueryParam("path"), CreatedAt: time.Now()}
	if v.Path == "" {
		v.Path = "/"
	}
	if s, ok := session.FromContext(ctx); ok {
		v.SessionID = s.ID
	}
	if err := repo.Record(v); err != nil {
		return err
	}
	n, err := repo.CountByPath(v.Path)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"path": v.Path, "visits": n})
}

func init() {
	ioc.Register(ioc.Descriptor{
		Name: "greeting",
		New: func(r *ioc.Resolver) (interface{}, error) {
			g := &Greeting{Prefix: "Hello", Suffix: "!"}
			if err := r.Settings(g); err != nil {
				return nil, err
			}
			return g, nil
		},
	})

	ioc.Register(ioc.Descriptor{
		Name:    "hello",
		Depends: []string{"greeting"},
		Markers: []ioc.Marker{ioc.RequestProcessor},
		New: func(r *ioc.Resolver) (interface{}, error) {
			g, err := ioc.Lookup[*Greeting](r, "greeting")
			if err != nil {
				return nil, err
			}
			return &helloProcessor{greeting: g}, nil
		},
	})

	ioc.Register(ioc.Descriptor{
		Name:    "visits",
		Depends: []string{cmd.BeanRuntimeEnv, cmd.BeanDataHandles},
		Markers: []ioc.Marker{ioc.RequestProcessor},
		New: func(r *ioc.Resolver) (interface{}, error) {
			env, err := ioc.Lookup[*environment.Env](r, cmd.BeanRuntimeEnv)
			if err != nil {
				return nil, err
			}
			guard, err := ioc.Lookup[*repository.Guard](r, cmd.BeanDataHandles)
			if err != nil {
				return nil, err
			}
			return &visitsProcessor{env: env, guard: guard}, nil
		},
	})

	// CLI command
	cmd.Register(&cobra.Command{
		Use:   "custom:hello",
		Short: "Custom command example",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintln(c.OutOrStdout(), "Hello from custom command")
		},
	})

	// Cron job
	cron.Register("custom:ping", "@every 1m", func(ctx context.Context, args ...string) error {
		zap.L().Info("Custom cron: ping", zap.Strings("args", args))
		return nil
	})
}
