package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/c360/sensorstream/config"
)

// Settings keys, also read from SENSORBUF_* environment variables.
const (
	keyConfig          = "config"
	keyLogLevel        = "log-level"
	keyLogFormat       = "log-format"
	keyMetricsPort     = "metrics-port"
	keyShutdownTimeout = "shutdown-timeout"
	keyHealthInterval  = "health-interval"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SENSORBUF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           appName,
		Short:         "Sensor acquisition buffers",
		Long:          `sensorbuf acquires sensors into timestamped ring buffers and consumes them like an estimation loop.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", "configs/sensors.yaml", "configuration file, comma-separated for layers (env: SENSORBUF_CONFIG)")
	flags.String(keyLogLevel, "", "log level override: debug, info, warn, error (env: SENSORBUF_LOG_LEVEL)")
	flags.String(keyLogFormat, "", "log format override: json, text (env: SENSORBUF_LOG_FORMAT)")
	flags.Int(keyMetricsPort, 0, "metrics port override, enables the endpoint (env: SENSORBUF_METRICS_PORT)")
	flags.Duration(keyShutdownTimeout, 10*time.Second, "time allowed for drivers to stop (env: SENSORBUF_SHUTDOWN_TIMEOUT)")
	flags.Duration(keyHealthInterval, 5*time.Second, "health check interval (env: SENSORBUF_HEALTH_INTERVAL)")
	_ = v.BindPFlags(flags)

	root.AddCommand(newRunCmd(v), newValidateCmd(v), newVersionCmd())
	return root
}

// loadConfig reads the configured layers and applies flag and environment overrides.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(false)
	for _, path := range strings.Split(v.GetString(keyConfig), ",") {
		if path = strings.TrimSpace(path); path != "" {
			loader.AddLayer(path)
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if level := v.GetString(keyLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if format := v.GetString(keyLogFormat); format != "" {
		cfg.Log.Format = format
	}
	if port := v.GetInt(keyMetricsPort); port != 0 {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Acquire and consume every configured sensor",
		Long: `Start the driver of every configured sensor and consume the readings until
all streams end or the process is interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			runID := uuid.New().String()
			logger := setupLogger(cmd.OutOrStdout(), cfg.Log.Level, cfg.Log.Format, runID)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := newPipeline(cfg, logger)
			if err != nil {
				return err
			}
			return p.Run(ctx, runOptions{
				ShutdownTimeout: v.GetDuration(keyShutdownTimeout),
				HealthInterval:  v.GetDuration(keyHealthInterval),
			})
		},
	}
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and print it with defaults applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, Version)
		},
	}
}

func withTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
