// cmd/sensilo-gateway/main.go
//
// Capture-side daemon: replays or tails an HCI capture, decodes Sensilo
// beacons, and forwards measurements to the configured sink.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"sensilo-go/services/gateway"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "sensilo-gateway",
		Short:        "Decode Sensilo beacon captures and forward measurements",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gateway.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "path to the YAML configuration")
	return cmd
}

func run(ctx context.Context, cfg *gateway.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger(cfg.Logging)
	reg := prometheus.NewRegistry()
	metrics := gateway.NewMetrics(reg)
	serveMetrics(cfg.Metrics, reg, log)

	sink, closeSink, err := buildSink(ctx, cfg.Sink, log)
	if err != nil {
		return err
	}
	defer closeSink()

	captures, err := gateway.StreamPcap(ctx, cfg.Capture.File, log)
	if err != nil {
		return err
	}

	p := gateway.NewPipeline(gateway.PipelineConfig{
		Devices:          cfg.Allowlist(),
		CaptureHeaderLen: cfg.Capture.HeaderLen,
		SubmitMode:       cfg.Submit.Mode,
		SubmitQueue:      cfg.Submit.Queue,
		SubmitTimeout:    cfg.Sink.Timeout.Std(),
	}, sink, log, metrics, nil)

	log.Info("gateway started",
		slog.Int("devices", len(cfg.Devices)),
		slog.String("sink", cfg.Sink.Type),
		slog.String("capture", cfg.Capture.File))
	err = p.Run(ctx, captures)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("gateway stopped")
	return err
}

func newLogger(cfg gateway.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

func serveMetrics(cfg gateway.MetricsConfig, reg *prometheus.Registry, log *slog.Logger) {
	if cfg.Listen == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(cfg.Listen, mux); err != nil {
			log.Error("metrics endpoint failed", slog.Any("err", err))
		}
	}()
	log.Info("metrics exposed", slog.String("listen", cfg.Listen), slog.String("path", cfg.Path))
}

func buildSink(ctx context.Context, cfg gateway.SinkConfig, log *slog.Logger) (gateway.Sink, func(), error) {
	switch cfg.Type {
	case "influxdb":
		return gateway.NewInfluxSink(cfg.InfluxDB, nil), func() {}, nil
	case "mqtt":
		dctx, cancel := context.WithTimeout(ctx, cfg.Timeout.Std())
		defer cancel()
		sink, err := gateway.DialMQTTSink(dctx, cfg.MQTT)
		if err != nil {
			return nil, nil, err
		}
		return sink, func() {
			if err := sink.Close(); err != nil {
				log.Warn("mqtt disconnect", slog.Any("err", err))
			}
		}, nil
	default:
		return &gateway.StdoutSink{W: os.Stdout}, func() {}, nil
	}
}
