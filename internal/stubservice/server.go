package stubservice

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ServeOptions tweaks Serve for tests. Zero values listen on server.Addr and react to
// SIGINT/SIGTERM.
type ServeOptions struct {
	Listener net.Listener
	Signals  <-chan os.Signal
}

// Serve runs the stub until it fails or a shutdown signal arrives. Requests still waiting on the
// configured delay are given shutdownTimeout to answer.
func Serve(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, opts ServeOptions) error {
	served := make(chan error, 1)
	go func() {
		served <- listen(server, opts.Listener)
	}()

	signals := opts.Signals
	if signals == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		signals = ch
	}

	select {
	case err := <-served:
		return err
	case sig, ok := <-signals:
		if !ok {
			return <-served
		}
		logger.Info("stopping detection stub", zap.String("signal", sig.String()), zap.Duration("drain", shutdownTimeout))
		if err := drain(server, shutdownTimeout); err != nil {
			return err
		}
		return <-served
	}
}

func listen(server *http.Server, listener net.Listener) error {
	var err error
	if listener != nil {
		err = server.Serve(listener)
	} else {
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func drain(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
