package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/xdesk/internal/config"
	"github.com/1broseidon/xdesk/internal/runtimepath"
	"github.com/1broseidon/xdesk/internal/xvfb"
)

func printVirtualUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: xdesk virtual <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run      Start Xvfb, run an application inside it and serve the daemon")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'xdesk virtual <command> --help' for command-specific options.")
}

func runVirtual(args []string) int {
	if len(args) == 0 {
		printVirtualUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "run":
		return runVirtualRun(args[1:])
	case "help", "-h", "--help":
		printVirtualUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown virtual command: %s\n\n", args[0])
		printVirtualUsage(os.Stderr)
		return 2
	}
}

// virtualServer builds the Xvfb server from config, with flag overrides
// applied when set.
func virtualServer(vd config.VirtualDisplayConfig, number int, size string) (*xvfb.Server, error) {
	s := &xvfb.Server{
		Number:         vd.Number,
		Size:           xvfb.Size{Width: vd.Width, Height: vd.Height, Depth: vd.Depth},
		StartupTimeout: time.Duration(vd.StartupTimeoutMs) * time.Millisecond,
	}
	if number >= 0 {
		s.Number = number
	}
	if size != "" {
		parsed, err := xvfb.ParseSize(size)
		if err != nil {
			return nil, err
		}
		s.Size = parsed
	}
	return s, nil
}

func runVirtualRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xdesk virtual run [--display N] [--size WxH[xD]] [--no-daemon] -- <command> [args...]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start a private Xvfb display, launch <command> on it, and serve the")
		fmt.Fprintln(os.Stderr, "xdesk daemon against that display until the command exits.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/xdesk/config.yaml)")
	number := fs.Int("display", -1, "Display number (default: virtual_display.number)")
	size := fs.String("size", "", "Screen size WxH[xD] (default: virtual_display width/height/depth)")
	noDaemon := fs.Bool("no-daemon", false, "Do not serve the IPC daemon")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "virtual run requires <command>")
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

	server, err := virtualServer(cfg.VirtualDisplay, *number, *size)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	server.Stderr = os.Stderr
	server.Logger = logger.With("component", "xvfb")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("failed to start virtual display", "err", err)
		return 1
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("virtual display did not stop cleanly", "err", err)
		}
	}()

	display := server.DisplayName()
	app, err := xvfb.Launch(display, fs.Arg(0), fs.Args()[1:], os.Stdout, os.Stderr)
	if err != nil {
		logger.Error("failed to launch application", "err", err)
		return 1
	}
	defer app.Stop()
	logger.Info("application started", "app", app.Name, "pid", app.Pid, "display", display)

	statePath, err := runtimepath.VirtualStatePath()
	if err == nil {
		err = xvfb.WriteState(statePath, xvfb.State{
			Display:   display,
			Size:      server.Size.String(),
			XvfbPid:   server.Pid(),
			App:       app.Name,
			AppPid:    app.Pid,
			StartedAt: time.Now(),
		})
	}
	if err != nil {
		logger.Warn("failed to record virtual display state", "err", err)
	} else {
		defer os.Remove(statePath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	daemonErr := make(chan error, 1)
	daemonRunning := !*noDaemon
	if daemonRunning {
		go func() {
			daemonErr <- serveDaemon(runCtx, cfg, *path, display, logger)
		}()
	}

	select {
	case <-app.Done():
		logger.Info("application exited", "app", app.Name, "err", app.Err())
	case <-server.Done():
		logger.Error("Xvfb exited unexpectedly", "display", display)
	case err := <-daemonErr:
		daemonRunning = false
		logger.Error("daemon stopped", "err", err)
	case <-ctx.Done():
		logger.Info("interrupted, stopping virtual display")
	}

	cancel()
	app.Stop()
	if daemonRunning {
		select {
		case <-daemonErr:
		case <-time.After(5 * time.Second):
		}
	}

	return exitCode(app.Err())
}

// exitCode maps the application's exit status onto ours.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
