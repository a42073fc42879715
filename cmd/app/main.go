package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordersaga/cmd"
	"ordersaga/internal/pkg/tracing"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

//	@title			Order saga API
//	@version		1.0
//	@description	Order lifecycle saga and driver assignment.
//	@BasePath		/

const shutdownTimeout = 15 * time.Second

func main() {
	configs, err := cmd.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	logger := cmd.NewLogger(configs.LogLevel)

	tp, err := tracing.Init(configs.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Error initializing tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cmd.NewCompositionRoot(ctx, configs, logger)
	if err != nil {
		log.Fatalf("Error building application: %v", err)
	}

	if err = run(ctx, app, configs.HTTPPort); err != nil {
		logger.Error("application stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = errors.Join(app.Close(), tp.Shutdown(shutdownCtx)); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("application stopped")
}

func run(ctx context.Context, app *cmd.CompositionRoot, port string) error {
	if err := app.NewConsumer().Subscribe(ctx, app.Bus()); err != nil {
		return fmt.Errorf("subscribe consumers: %w", err)
	}

	jobManager, err := app.NewJobManager()
	if err != nil {
		return err
	}
	if err = jobManager.StartAll(); err != nil {
		return err
	}
	defer jobManager.StopAll()

	return startWebServer(ctx, app, port)
}

func startWebServer(ctx context.Context, app *cmd.CompositionRoot, port string) error {
	e := app.NewHTTPServer()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
