package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"interviewcast/internal/app"
	"interviewcast/internal/observability"
	"interviewcast/pkg/config"
)

var version = "dev"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "interviewcast",
	Short: "Generate scripted interview videos",
	Long: `Interviewcast writes multi-turn interview scripts between an interviewer and a
candidate persona with an LLM, stores them, and renders them to audio and video.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger("text")
	}
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupLogger(format string) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(observability.NewLogger(os.Stdout, format, level))
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg.Telemetry.LogFormat)
	return cfg, nil
}

// loadService builds the service with tracing set up. The returned cleanup
// closes the service and flushes spans.
func loadService(ctx context.Context) (*app.Service, func(), error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	shutdown, err := observability.InitTracer(ctx, observability.TracerOptions{
		Enabled:     cfg.Telemetry.Tracing,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		return nil, nil, err
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, nil, err
	}

	cleanup := func() {
		if err := service.Close(); err != nil {
			slog.Warn("Failed to close service", "error", err)
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}
	return service, cleanup, nil
}
