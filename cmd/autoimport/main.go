// Command autoimport runs the book import crawl service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qnote/auto-import/internal/api"
	"github.com/qnote/auto-import/internal/clock/system"
	"github.com/qnote/auto-import/internal/config"
	"github.com/qnote/auto-import/internal/dispatcher"
	collyfetcher "github.com/qnote/auto-import/internal/fetcher/colly"
	iduuid "github.com/qnote/auto-import/internal/id/uuid"
	"github.com/qnote/auto-import/internal/logging"
	"github.com/qnote/auto-import/internal/metrics"
	"github.com/qnote/auto-import/internal/progress"
	"github.com/qnote/auto-import/internal/progress/sinks"
	queuememory "github.com/qnote/auto-import/internal/queue/memory"
	"github.com/qnote/auto-import/internal/scraper"
	storagememory "github.com/qnote/auto-import/internal/storage/memory"
	"github.com/qnote/auto-import/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "autoimport: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		promSink,
	)

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, logger)

	scr := scraper.New(fetcher, scraper.Config{
		HomepageLong:    cfg.Sites.HomepageLong,
		HomepageShort:   cfg.Sites.HomepageShort,
		DetailURL:       cfg.Sites.DetailURL,
		ChapterURL:      cfg.Sites.ChapterURL,
		BookConcurrency: cfg.Crawler.BookConcurrency,
	}, hub, logger)

	jobStore := storagememory.NewJobStore()
	queue := queuememory.NewQueue(cfg.Crawler.QueueDepth)
	clk := system.New()

	workers := make([]*worker.Worker, 0, cfg.Crawler.Workers)
	for i := 0; i < cfg.Crawler.Workers; i++ {
		workers = append(workers, worker.New(queue, jobStore, scr, hub, clk,
			logger.With(zap.Int("worker", i))))
	}
	disp := dispatcher.New(queue, workers)
	go disp.Run(ctx)

	server := api.NewServer(scr, disp, jobStore, iduuid.New(), clk, cfg, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	queue.Close()
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
