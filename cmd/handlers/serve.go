package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trendpulse/internal/config"
	"trendpulse/internal/logger"
	"trendpulse/internal/scheduler"
	"trendpulse/internal/server"
)

// NewServeCmd creates the serve command for the HTTP server plus scheduler.
func NewServeCmd() *cobra.Command {
	var (
		port        int
		host        string
		noScheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the periodic scan scheduler",
		Long: `Start the trendpulse server.

The server provides:
  • POST /api/scan for manual scans
  • GET /api/reports/latest and /api/reports/history
  • GET/PUT /api/aliases for the tag alias table
  • GET /api/keywords for the downstream keyword bundle
  • GET /health

Unless disabled, a background scheduler fires a full scan at the configured
interval, aligned to the hour in UTC.

Examples:
  # Start on the configured port
  trendpulse serve

  # Custom port, no background scans
  trendpulse serve --port 3000 --no-scheduler`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, noScheduler)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Disable the periodic scan scheduler")

	return cmd
}

func runServe(ctx context.Context, port int, host string, noScheduler bool) error {
	log := logger.With("serve")

	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.close()

	serverCfg := application.cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	interval := time.Duration(application.cfg.Scheduler.IntervalHours) * time.Hour
	schedule := fmt.Sprintf("every %d hours, on the hour (UTC)", application.cfg.Scheduler.IntervalHours)
	if noScheduler || !application.cfg.Scheduler.Enabled {
		schedule = "disabled"
	}

	srv := server.New(application.scanner, application.store, serverCfg, schedule)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sched *scheduler.Scheduler
	if schedule != "disabled" {
		sched = scheduler.New(application.scanner, interval, false)
		sched.Start(runCtx)
		log.Info().Dur("interval", interval).Msg("scheduler started")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		cancel()
		if sched != nil {
			sched.Wait()
		}
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancel()
	if sched != nil {
		sched.Wait()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		config.Duration(serverCfg.ShutdownTimeout, 10*time.Second))
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
