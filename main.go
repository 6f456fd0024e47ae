package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"msgeq7-viz/src/config"
	"msgeq7-viz/src/logging"
	"msgeq7-viz/src/metrics"
	"msgeq7-viz/src/plotter"
	"msgeq7-viz/src/recorder"
	"msgeq7-viz/src/server"
	"msgeq7-viz/src/session"
	"msgeq7-viz/src/source"
	"msgeq7-viz/src/ui/gui"
	"msgeq7-viz/src/ui/tui"
)

// defaultTUILog keeps log lines off the terminal the TUI draws on
const defaultTUILog = "msgeq7.log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "msgeq7-viz: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file
	if err := config.LoadEnvFile(); err != nil {
		slog.Warn("failed to load .env file, using process environment", "err", err)
	}

	configPath := flag.String("config", os.Getenv("MSGEQ7_CONFIG"), "path to a YAML config file")
	uiMode := flag.String("ui", "", "frontend: gui or tui")
	kind := flag.String("source", "", "input: serial, websocket, replay or sim")
	port := flag.String("port", "", "serial port, overrides source.serial.port")
	record := flag.String("record", "", "append accepted frames to this CSV file")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := source.ListPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *uiMode != "" {
		cfg.UI.Mode = *uiMode
	}
	if *kind != "" {
		cfg.Source.Kind = *kind
	}
	if *port != "" {
		cfg.Source.Serial.Port = *port
	}
	if *record != "" {
		cfg.Record.File = *record
	}
	if cfg.UI.Mode == config.UITUI && (cfg.Log.Output == "" || cfg.Log.Output == "stderr" || cfg.Log.Output == "stdout") {
		cfg.Log.Output = defaultTUILog
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	log, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	// Create context with cancellation on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sourceName := source.Describe(cfg.Source)
	src, err := source.Open(ctx, cfg.Source, log)
	if err != nil {
		return fmt.Errorf("open %s: %w", sourceName, err)
	}
	log.Info("source opened", "source", sourceName)

	m := metrics.New()
	opts := []session.Option{
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithStatsPeriod(cfg.UI.StatsPeriod),
	}

	var closers []io.Closer
	if cfg.Record.File != "" {
		rec, err := recorder.Open(cfg.Record.File)
		if err != nil {
			src.Close()
			return err
		}
		closers = append(closers, rec)
		opts = append(opts, session.WithRecorder(rec))
		log.Info("recording frames", "file", rec.Path())
	}

	sess := session.New(src, plotter.NewState(cfg.UI.WindowSize), opts...)
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("close source", "err", err)
		}
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn("close recorder", "err", err)
			}
		}
	}()

	serverDone := make(chan error, 1)
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if cfg.Server.Addr != "" {
		srv := server.New(cfg.Server, sess, m.Registry(), log)
		go func() { serverDone <- srv.Run(serverCtx) }()
	} else {
		close(serverDone)
	}

	switch cfg.UI.Mode {
	case config.UITUI:
		err = tui.Run(ctx, sess, cfg.UI, sourceName, log)
	default:
		err = gui.Run(ctx, sess, cfg.UI, sourceName, log)
	}

	stopServer()
	if serr := <-serverDone; serr != nil {
		log.Error("http server stopped", "err", serr)
		err = errors.Join(err, serr)
	}

	accepted, rejected := sess.State().Counts()
	log.Info("visualizer stopped", "frames", accepted, "skipped", rejected)
	return err
}
