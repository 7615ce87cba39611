package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/xdesk/internal/capture"
	"github.com/1broseidon/xdesk/internal/config"
	"github.com/1broseidon/xdesk/internal/input"
	"github.com/1broseidon/xdesk/internal/ipc"
	"github.com/1broseidon/xdesk/internal/logging"
	"github.com/1broseidon/xdesk/internal/runtimepath"
	"github.com/1broseidon/xdesk/internal/x11"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xdesk daemon [--path PATH] [--display DISPLAY]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Serve capture and input requests on the IPC socket (foreground).")
		fmt.Fprintln(os.Stderr, "SIGHUP reloads the configuration.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/xdesk/config.yaml)")
	display := fs.String("display", "", "X display (default: config, then $DISPLAY, then autodetect)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		log.Printf("Failed to set up logging: %v", err)
		return 1
	}
	defer closer.Close()

	if *display == "" {
		*display = x11.ResolveDisplay(cfg.Display)
	}
	exportXAuthority(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serveDaemon(ctx, cfg, *path, *display, logger); err != nil {
		logger.Error("daemon failed", "err", err)
		return 1
	}
	return 0
}

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
}

// exportXAuthority makes a detected cookie file visible to xgb, which only
// consults $XAUTHORITY.
func exportXAuthority(cfg *config.Config, logger *slog.Logger) {
	if os.Getenv("XAUTHORITY") != "" && cfg.XAuthority == "" {
		return
	}
	if xauth := x11.ResolveXAuthority(cfg.XAuthority); xauth != "" {
		os.Setenv("XAUTHORITY", xauth)
		logger.Debug("using X authority file", "path", xauth)
	}
}

// localDisplay prepares this process to talk to the X server directly, as
// the --local paths do, and returns the display to open.
func localDisplay(cfg *config.Config) string {
	exportXAuthority(cfg, slog.New(slog.DiscardHandler))
	return x11.ResolveDisplay(cfg.Display)
}

// serveDaemon runs the IPC server for display until ctx is cancelled.
// configPath is re-read on SIGHUP and RELOAD; empty means the default
// location.
func serveDaemon(ctx context.Context, cfg *config.Config, configPath, display string, logger *slog.Logger) error {
	socketPath, err := runtimepath.SocketPath(cfg.SocketPath)
	if err != nil {
		return err
	}

	engine := capture.NewEngine(capture.X11Opener(display), logger.With("component", "capture"))
	synth := input.NewSynthesizer(input.X11Opener(display), logger.With("component", "input"))

	reloadChan := make(chan struct{}, 1)
	server := ipc.NewServer(socketPath, display, cfg, ipc.Handlers{
		Capturer:  engine,
		Injector:  synth,
		Inspector: x11.Inspector{Display: display},
	}, reloadChan, logger.With("component", "ipc"))
	server.SetLoader(func() (*config.Config, error) { return loadConfig(configPath) })

	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	logger.Info("xdesk daemon started", "display", display, "socket", socketPath)

	if cfg.Capture.GetProbeOnStart() {
		probeGeometry(engine, logger)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down xdesk daemon")
			return nil
		case <-hup:
			logger.Info("received SIGHUP, reloading config")
			newCfg, err := loadConfig(configPath)
			if err != nil {
				logger.Warn("config reload failed", "err", err)
				continue
			}
			server.SetConfig(newCfg)
			logger.Info("config reloaded", "default_mode", newCfg.Capture.DefaultMode, "input_enabled", newCfg.Input.GetEnabled())
		case <-reloadChan:
			newCfg := server.Config()
			logger.Debug("config reloaded via IPC", "default_mode", newCfg.Capture.DefaultMode, "input_enabled", newCfg.Input.GetEnabled())
		}
	}
}

// probeGeometry fills the geometry cache for both modes so the first
// client sees sizes without waiting on a capture.
func probeGeometry(engine *capture.Engine, logger *slog.Logger) {
	for _, mode := range []capture.Mode{capture.ModeBounded, capture.ModeFull} {
		g := engine.Geometry(mode)
		if g.Width == 0 {
			logger.Warn("geometry probe failed; will retry on first request", "mode", mode.String())
			continue
		}
		logger.Info("geometry probed", "mode", mode.String(), "width", g.Width, "height", g.Height, "depth", g.Depth, "bits_per_pixel", g.BitsPerPixel)
	}
}
