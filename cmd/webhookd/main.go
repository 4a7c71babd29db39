package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nti-labs/webhooks/config"
)

// NewApp is a package-level indirection so tests can substitute a mock
// AppInterface, following the teacher's cmd/api `var NewApp = app.NewApp`
// test-injection pattern.
var NewApp = newApp

var osExit = os.Exit

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		osExit(1)
		return
	}

	application := NewApp(cfg)

	if err := application.Initialize(); err != nil {
		application.GetLogger().WithField("error", err).Fatal("failed to initialize application")
		osExit(1)
		return
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- application.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrCh:
		if err != nil {
			application.GetLogger().WithField("error", err).Error("server stopped unexpectedly")
		}
	case sig := <-sigCh:
		application.GetLogger().WithField("signal", sig.String()).Info("received shutdown signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 65*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		application.GetLogger().WithField("error", err).Error("error during shutdown")
		osExit(1)
		return
	}
}
