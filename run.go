package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otellog "go.opentelemetry.io/otel/log"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	// run flags
	runLogPath  string
	runWindow   int
	runInterval time.Duration
	runStateDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the server log and relay events",
	Long: `Scan the trailing window of the server log on a fixed interval,
track who is online, and relay joins, leaves and new chat lines.

Examples:
  # Use the config file and environment
  minecraft-relay run

  # Watch a local server, scanning the last 200 lines every 10 seconds
  minecraft-relay run --log-path ./logs/latest.log --window 200 --interval 10s`,
	RunE: runRelay,
}

func init() {
	runCmd.Flags().StringVar(&runLogPath, "log-path", "",
		"Server log file (overrides source.path)")
	runCmd.Flags().IntVar(&runWindow, "window", 0,
		"Number of trailing lines scanned per cycle (overrides source.window)")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0,
		"Delay between scans (overrides source.interval)")
	runCmd.Flags().StringVar(&runStateDir, "state-dir", "",
		"Directory for registry files (overrides state.dir)")
}

// applyRunFlags layers command-line flags over the loaded config.
func applyRunFlags(cfg *Config) {
	if runLogPath != "" {
		cfg.Source.Kind = "file"
		cfg.Source.Path = runLogPath
	}
	if runWindow > 0 {
		cfg.Source.Window = runWindow
	}
	if runInterval > 0 {
		cfg.Source.Interval = runInterval
	}
	if runStateDir != "" {
		cfg.State.Dir = runStateDir
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyRunFlags(&cfg)
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Telemetry
	meterProvider, loggerProvider, shutdown, err := setupTelemetry(ctx, &cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	metrics, err := newRelayMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// Log source
	var source LogSource
	switch cfg.Source.Kind {
	case "pod":
		source = NewPodSource(NewK8sClient(cfg.Source.Namespace), cfg.Source.PodLabel)
	default:
		source = NewFileSource(cfg.Source.Path)
	}

	// Durable state
	state := OpenRelayState(&cfg)

	// Channels
	var channels []Channel
	if cfg.Console.Enabled {
		channels = append(channels, NewConsoleChannel(cfg.Console.Format, os.Stdout))
	}
	if cfg.Discord.Enabled {
		dc, err := NewDiscordChannel(cfg.Discord.BotToken, cfg.Discord.ChannelID, &cfg)
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		channels = append(channels, dc)
	}

	bridge := NewBridge(channels)

	// Watch loop + subscribers
	loop := NewWatchLoop(source, state, cfg.Source.Window, cfg.Source.Interval, metrics)
	loop.Subscribe(&OTelLogSubscriber{logger: loggerProvider.Logger(cfg.OTel.ServiceName), cfg: &cfg})
	loop.Subscribe(bridge.Subscriber(&cfg))

	var sender CommandSender
	if cfg.RCON.Enabled {
		pool := NewRCONPool(cfg.RCON.Host, cfg.RCON.Port, cfg.RCON.Password)
		defer pool.Close()
		sender = pool
	}
	loop.AcceptInbound(bridge.Inbound(), sender)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		bridge.FanOutEvents(ctx)
	}()

	for _, ch := range channels {
		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			if err := c.Start(ctx); err != nil {
				log.Printf("channel %s: %v", c.Name(), err)
			}
		}(ch)

		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			bridge.HandleInbound(ctx, c)
		}(ch)
	}

	channelNames := make([]string, len(channels))
	for i, ch := range channels {
		channelNames[i] = ch.Name()
	}
	log.Printf("minecraft-relay started (source=%s, window=%d, interval=%v, rcon=%v, channels=%v)",
		source.Name(), cfg.Source.Window, cfg.Source.Interval, cfg.RCON.Enabled, channelNames)

	// The scan loop runs on this goroutine; it returns only on cancellation.
	loop.Run(ctx)

	wg.Wait()
	log.Println("shutting down")
	return nil
}

// setupTelemetry builds OTLP exporters when enabled and noop providers otherwise.
func setupTelemetry(ctx context.Context, cfg *Config) (metric.MeterProvider, otellog.LoggerProvider, func(), error) {
	if !cfg.OTel.Enabled {
		return metricnoop.NewMeterProvider(), lognoop.NewLoggerProvider(), func() {}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.OTel.ServiceName)),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("otel resource: %w", err)
	}

	var mp metric.MeterProvider = metricnoop.NewMeterProvider()
	var shutdowns []func(context.Context) error

	if cfg.Metrics.Enabled {
		metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("metric exporter: %w", err)
		}
		meterProvider := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(cfg.Metrics.Interval))),
		)
		shutdowns = append(shutdowns, meterProvider.Shutdown)
		mp = meterProvider
	}

	logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithInsecure())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("log exporter: %w", err)
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	shutdowns = append(shutdowns, loggerProvider.Shutdown)

	shutdown := func() {
		// The run context is already cancelled by the time we get here.
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, fn := range shutdowns {
			if err := fn(sctx); err != nil {
				log.Printf("telemetry shutdown: %v", err)
			}
		}
	}
	return mp, loggerProvider, shutdown, nil
}
