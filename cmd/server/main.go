package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelqueue/reelqueue/internal/config"
	httpserver "github.com/reelqueue/reelqueue/internal/http"
	"github.com/reelqueue/reelqueue/internal/metadata"
	"github.com/reelqueue/reelqueue/internal/queue"
	"github.com/reelqueue/reelqueue/internal/tablestore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[reelqueue] ", log.LstdFlags|log.Lshortfile)
	for _, warning := range cfg.Warnings {
		logger.Printf("config warning: %s", warning)
	}

	tableClient, err := tablestore.New(cfg.TableStoreURL, cfg.TableStoreKey,
		time.Duration(cfg.TableTimeoutSecs)*time.Second, logger)
	if err != nil {
		log.Fatalf("init table client: %v", err)
	}

	searchClient, err := metadata.New(cfg.MetadataBaseURL, cfg.MetadataAPIKey,
		time.Duration(cfg.MetadataTimeoutSecs)*time.Second, logger)
	if err != nil {
		log.Fatalf("init metadata client: %v", err)
	}

	queueStore := queue.New(tableClient, logger)
	if tableClient.Ready() {
		loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := queueStore.Reload(loadCtx); err != nil {
			logger.Printf("initial queue load failed: %v", err)
		}
		cancel()
	}

	server := httpserver.New(cfg, queueStore, searchClient, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
}
