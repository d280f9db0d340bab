package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/example/forgery-check/internal/acquisition"
	"github.com/example/forgery-check/internal/classifier"
	"github.com/example/forgery-check/internal/config"
	"github.com/example/forgery-check/internal/console"
	"github.com/example/forgery-check/internal/logging"
	"github.com/example/forgery-check/internal/session"
)

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "YAML config file (default $FORGERY_CONFIG or config.yaml)")
	endpoint := flag.String("endpoint", "", "Override the detection service URL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Development: true, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	rl, err := readline.New(console.DefaultPrompt)
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	screen := console.New(lineReader{rl}, rl.Stdout(), logger)

	picker := acquisition.NewLibraryPicker(cfg.LibraryDir, screen.Prompter(), rl.Stdout())
	defer func() {
		if err := picker.Close(); err != nil {
			logger.Warn("failed to remove edited images", zap.Error(err))
		}
	}()

	acquirer := acquisition.NewAcquirer(
		permissionRequester(cfg, screen.Prompter()),
		picker,
		acquisition.DefaultPickOptions(),
		logger,
	)
	client := classifier.NewHTTPClient(classifier.Options{
		Endpoint: cfg.Endpoint,
		Origin:   cfg.Origin,
		Timeout:  cfg.RequestTimeout,
	}, logger)

	sess := session.New(acquirer, client, logger)
	screen.Bind(sess)

	logger.Info("forgery check started",
		zap.String("endpoint", client.Endpoint()),
		zap.String("library", cfg.LibraryDir),
		zap.String("permission", string(cfg.Permission)),
	)

	runErr := screen.Run(ctx)
	// Leaving the screen abandons whatever is still pending.
	stop()
	sess.Wait()

	st := sess.Stats()
	logger.Info("forgery check stopped",
		zap.Int64("submitted", st.Submitted),
		zap.Int64("succeeded", st.Succeeded),
		zap.Int64("failed", st.Failed),
		zap.Int64("discarded", st.Discarded),
	)
	return runErr
}

func permissionRequester(cfg *config.Config, prompter acquisition.Prompter) acquisition.PermissionRequester {
	switch cfg.Permission {
	case config.PermissionGranted:
		return acquisition.StaticPermission{Granted: true, Required: true}
	case config.PermissionDenied:
		return acquisition.StaticPermission{Granted: false, Required: true}
	case config.PermissionNone:
		return acquisition.StaticPermission{Required: false}
	default:
		return acquisition.NewPromptPermission(prompter, cfg.LibraryDir)
	}
}

// lineReader maps readline's Ctrl+C onto console.ErrInterrupt.
type lineReader struct {
	rl *readline.Instance
}

func (r lineReader) Readline() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return line, console.ErrInterrupt
	}
	return line, err
}

func (r lineReader) SetPrompt(prompt string) {
	r.rl.SetPrompt(prompt)
}
