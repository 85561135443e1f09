package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/term"

	"github.com/iburimskiy/motion-screensaver/internal/app"
	"github.com/iburimskiy/motion-screensaver/internal/camera"
	"github.com/iburimskiy/motion-screensaver/internal/config"
	"github.com/iburimskiy/motion-screensaver/internal/session"
	"github.com/iburimskiy/motion-screensaver/internal/surveillance"
)

const (
	appName        = "motion-screensaver"
	envPrefix      = "SAVER"
	settingsFile   = "settings.json"
	snapshotSuffix = "snapshot"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return buildCLI().ParseAndRun(context.Background(), os.Args[1:])
}

func buildCLI() *ffcli.Command {
	rootFlagSet := flag.NewFlagSet(appName, flag.ExitOnError)
	debug := rootFlagSet.Bool("debug", false, "Enable debug logging")
	configPath := rootFlagSet.String("config", "", "Settings file (YAML or JSON); defaults to settings.json next to the executable")

	runFlagSet := flag.NewFlagSet(appName+" run", flag.ExitOnError)
	runMode := runFlagSet.String("mode", "", "Override saver_mode: balls, slideshow, line_art, matrix")
	runDryRun := runFlagSet.Bool("dry-run-shutdown", false, "Log the lockout shutdown instead of executing it")

	runCmd := &ffcli.Command{
		Name:       "run",
		ShortUsage: appName + " run [flags]",
		ShortHelp:  "Show the screensaver",
		FlagSet:    runFlagSet,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, _ []string) error {
			setupLogging(*debug)
			return execRun(ctx, *configPath, *runMode, *runDryRun)
		},
	}

	hashCmd := &ffcli.Command{
		Name:       "hash-password",
		ShortUsage: appName + " hash-password",
		ShortHelp:  "Print the password_hash value for a password",
		Exec:       func(_ context.Context, _ []string) error { return execHashPassword() },
	}

	cleanupFlagSet := flag.NewFlagSet(appName+" cleanup", flag.ExitOnError)
	cleanupDays := cleanupFlagSet.Int("days", -1, "Retention in days; defaults to camera_capture_retention_days")

	cleanupCmd := &ffcli.Command{
		Name:       "cleanup",
		ShortUsage: appName + " cleanup [flags]",
		ShortHelp:  "Delete expired camera captures",
		FlagSet:    cleanupFlagSet,
		Exec: func(_ context.Context, _ []string) error {
			setupLogging(*debug)
			return execCleanup(*configPath, *cleanupDays)
		},
	}

	snapshotCmd := &ffcli.Command{
		Name:       "snapshot",
		ShortUsage: appName + " snapshot",
		ShortHelp:  "Save one camera frame to the capture folder",
		Exec: func(_ context.Context, _ []string) error {
			setupLogging(*debug)
			return execSnapshot(*configPath)
		},
	}

	return &ffcli.Command{
		ShortUsage:  appName + " [flags] <subcommand>",
		ShortHelp:   "Lock-screen screensaver with motion surveillance",
		LongHelp:    "Any input leaves the saver, or opens the password prompt when a password is set.\nThree wrong passwords shut the machine down.",
		FlagSet:     rootFlagSet,
		Options:     []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Subcommands: []*ffcli.Command{runCmd, hashCmd, cleanupCmd, snapshotCmd},
		Exec: func(ctx context.Context, _ []string) error {
			setupLogging(*debug)
			return execRun(ctx, *configPath, "", false)
		},
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// baseDir is the directory relative paths in the settings resolve against.
func baseDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// loadConfig never fails: a missing file means defaults and a broken option
// keeps its default.
func loadConfig(path string) (config.Config, string) {
	base := baseDir()
	if path == "" {
		path = filepath.Join(base, settingsFile)
	}
	cfg, warnings, err := config.Load(path)
	if err != nil {
		slog.Warn("config: using defaults", "path", path, "error", err)
	}
	for _, w := range append(warnings, cfg.Normalize()...) {
		slog.Warn("config: " + w)
	}
	return cfg, base
}

func execRun(ctx context.Context, configPath, mode string, dryRun bool) error {
	cfg, base := loadConfig(configPath)
	if mode != "" {
		cfg.SaverMode = config.SaverMode(mode)
	}
	if dryRun {
		cfg.DryRunShutdown = true
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, app.Options{
		BaseDir: base,
		OnQuit:  func() { slog.Info("main: quit requested") },
	})
	res, err := a.Run(ctx)
	if err != nil {
		return err
	}
	if res.Reason == session.ReasonLockout {
		// give the shutdown command a moment before the process exits
		time.Sleep(time.Second)
	}
	return nil
}

func execHashPassword() error {
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("empty password")
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		confirm, err := readPassword("Confirm: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return errors.New("passwords do not match")
		}
	}
	fmt.Println(session.Hash(password))
	return nil
}

// readPassword reads without echo from a terminal, or one line from a pipe.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func execCleanup(configPath string, days int) error {
	cfg, base := loadConfig(configPath)
	if days < 0 {
		days = cfg.CameraRetentionDays
	}
	folder := cfg.CaptureFolder(base)
	n, err := surveillance.Cleanup(folder, days, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("removed %d capture(s) from %s\n", n, folder)
	return nil
}

func execSnapshot(configPath string) error {
	cfg, base := loadConfig(configPath)
	opener := camera.GstOpener{Width: cfg.CameraWidth, Height: cfg.CameraHeight}
	dev, err := opener.Open(cfg.CameraDeviceIndex)
	if err != nil {
		return err
	}
	defer dev.Close()

	frame, err := dev.Read()
	if err != nil {
		return fmt.Errorf("failed to read frame: %w", err)
	}
	path, err := surveillance.SaveCapture(cfg.CaptureFolder(base), frame, time.Now(), snapshotSuffix)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
