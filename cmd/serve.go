package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"latke.GO/config"
	"latke.GO/core/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bootstrap the application and serve HTTP until interrupted",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if cfg.Banner {
			figure.NewFigure(cfg.AppName, "", true).Print()
			fmt.Println()
		}

		app, err := newApplication(cfg, log)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := app.server.Run(ctx); err != nil {
			log.Error("Server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
