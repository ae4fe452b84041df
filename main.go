package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/veenone/modem-inspector/feature"
	"github.com/veenone/modem-inspector/modem"
	"github.com/veenone/modem-inspector/plugin"
	"github.com/veenone/modem-inspector/report"
)

func main() {
	flag.String("plugin", "", "Path to the vendor plugin YAML document")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 0, "Baud rate override (0 uses the plugin default)")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("output", "-", "Report destination, or - for stdout")
	flag.Bool("quick", false, "Run only commands flagged for quick-scan mode")
	flag.Float64("threshold", 0.7, "Confidence threshold for the report's filtered view")
	flag.Bool("serve", false, "Expose inspection over HTTP instead of a one-shot run")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for serve mode")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if config.PluginPath == "" {
		logger.Error("No plugin specified, use -plugin or PLUGIN_PATH")
		os.Exit(1)
	}

	p, err := plugin.LoadFile(config.PluginPath)
	if err != nil {
		logger.Error("Failed to load plugin", "error", err)
		os.Exit(1)
	}
	logger.Info("Loaded plugin",
		"vendor", p.Metadata.Vendor, "model", p.Metadata.Model, "version", p.Metadata.Version)

	inspector := &Inspector{
		Logger: logger,
		Config: config,
		Plugin: p,
	}

	if config.Serve {
		runServer(logger, config, inspector)
		return
	}

	rep, err := inspector.Run(context.Background())
	if err != nil {
		logger.Error("Inspection failed", "error", err)
		os.Exit(1)
	}

	out := os.Stdout
	if config.Output != "-" {
		f, err := os.Create(config.Output)
		if err != nil {
			logger.Error("Failed to create report file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := rep.WriteJSON(out); err != nil {
		logger.Error("Failed to write report", "error", err)
		os.Exit(1)
	}
	logger.Info("Inspection complete",
		"session", rep.SessionID, "commands", rep.Summary.Commands,
		"aggregate_confidence", rep.Summary.Aggregate)
}

// Inspector runs one full inspection session: dial the modem, execute
// the plugin's command set, extract features, assemble a report. A
// session exclusively owns the serial port; Run is guarded so two
// sessions never share the transport.
type Inspector struct {
	Logger *slog.Logger
	Config *Config
	Plugin *plugin.Plugin

	mu sync.Mutex
}

func (i *Inspector) Run(ctx context.Context) (*report.Report, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	baud := i.Config.BaudRate
	if baud == 0 {
		baud = i.Plugin.Connection.DefaultBaud
	}

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName: i.Config.SerialPort,
			BaudRate: baud,
		}).
		WithDefaultTimeout(5 * time.Second).
		WithLogger(i.Logger.With("component", "executor")).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build modem config: %w", err)
	}

	executor, err := modem.New(ctx, modemConfig)
	if err != nil {
		return nil, fmt.Errorf("connect modem: %w", err)
	}
	defer executor.Close()

	commands := i.Plugin.AllCommands()
	if i.Config.Quick {
		commands = i.Plugin.QuickCommands()
	}
	i.Logger.Info("Starting inspection", "commands", len(commands), "quick", i.Config.Quick)

	responses, err := executor.ExecuteBatch(ctx, commands)
	if err != nil {
		// A transport fault ends the session, but whatever was
		// collected is still worth reporting upstream.
		i.Logger.Error("Batch aborted", "error", err, "collected", len(responses))
		return nil, err
	}

	byCommand := make(map[string]modem.CommandResponse, len(responses))
	for _, resp := range responses {
		byCommand[resp.Command] = resp
	}

	extractor := feature.NewExtractor(i.Logger.With("component", "extractor"))
	features := extractor.Extract(byCommand, i.Plugin)

	return report.New(i.Plugin, executor.History(), features, i.Config.Threshold), nil
}

func runServer(logger *slog.Logger, config *Config, inspector *Inspector) {
	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:    logger.With("component", "server"),
			Inspector: inspector,
		},
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}
