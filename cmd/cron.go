package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"latke.GO/core/environment"
	"latke.GO/cron"
)

var jobName string

var cronStartCmd = &cobra.Command{
	Use:   "cron:start",
	Short: "Start the cron scheduler or run a single job by name",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		env := environment.New(cfg, log)
		if err := env.InitRuntimeEnv(ctx); err != nil {
			return err
		}
		defer func() {
			if err := env.Shutdown(context.Background()); err != nil {
				log.Warn("Runtime teardown", zap.Error(err))
			}
		}()

		jobs := cron.NewService(log)
		if jobName != "" {
			name := strings.ToLower(jobName)
			fmt.Fprintf(c.OutOrStdout(), "Running cron job: %s\n", jobName)
			return jobs.RunOnce(ctx, name, args...)
		}

		fmt.Fprintln(c.OutOrStdout(), "Starting cron scheduler...")
		if err := jobs.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), "Cron scheduler started. Press Ctrl+C to exit.")
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return jobs.Stop(stopCtx)
	},
}

func init() {
	cronStartCmd.Flags().StringVarP(&jobName, "job", "j", "", "Run a single cron job by name and exit")
	rootCmd.AddCommand(cronStartCmd)
}
