package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/config"
	bookhttp "github.com/books-catalog/cmd/api/http"
)

/* Runs the HTTP API until SIGINT or SIGTERM, then shuts it down gracefully. */
func serve(cfg config.ServerConfig, bookService book.ServiceAPI) error {
	bookHandler := bookhttp.NewBookHandler(bookService)

	//create and init http server:
	server := bookhttp.NewServer(bookhttp.ServerConfig{
		Port:           cfg.Port,
		RequestTimeout: cfg.RequestTimeout,
		GenerateRate:   cfg.GenerateRate,
		GenerateBurst:  cfg.GenerateBurst,
	}, bookHandler)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", server.Addr)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("unexpected http server error: %w", err)
		}
		close(serverErr)
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sc)

	select {
	case err := <-serverErr:
		return err
	case sig := <-sc:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, shutdownRelease := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownRelease()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	slog.Info("Graceful shutdown complete.")
	return nil
}
