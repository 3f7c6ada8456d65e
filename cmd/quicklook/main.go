package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"quicklook/internal/bot"
	"quicklook/internal/codegen"
	"quicklook/internal/config"
	"quicklook/internal/describe"
	"quicklook/internal/httpapi"
	"quicklook/internal/preview"
	"quicklook/internal/registry"
	"quicklook/internal/resolver"
	"quicklook/internal/scraper"
	"quicklook/internal/storage"
)

func main() {
	configDir := flag.String("config", "./configs", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, _ := cfg.Level()
	log.SetLevel(level)

	log.WithFields(logrus.Fields{
		"storage_driver": cfg.StorageDriver,
		"address":        cfg.ServerAddress,
		"base_url":       cfg.BaseURL,
		"scraper":        cfg.ScraperEnabled,
		"bot":            cfg.TelegramBotToken != "",
	}).Info("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("QuickLook stopped with error")
		os.Exit(1)
	}
	log.Info("QuickLook shut down gracefully.")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	store, err := storage.Open(ctx, storage.Options{
		Driver:        storage.Driver(cfg.StorageDriver),
		BadgerPath:    cfg.BadgerDBPath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		PostgresDSN:   cfg.PostgresDSN,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		log.Info("Closing storage...")
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Error closing storage")
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	// Background workers stop with the server even when it fails on its own.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if bs, ok := store.(*storage.BadgerStore); ok && cfg.BadgerGCInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bs.RunGC(ctx, cfg.BadgerGCInterval)
		}()
	}

	reg := registry.New(store, codegen.New(), log)

	renderer, err := preview.NewRenderer(cfg.PreviewRedirectAfter)
	if err != nil {
		return err
	}
	negotiator := resolver.NewNegotiator(reg, renderer, log)

	client := describe.NewClient(cfg.LLMTimeout, log, describe.WithDefaults(cfg.LLMModel, cfg.LLMEndpoint))
	var metadata scraper.Scraper
	if cfg.ScraperEnabled {
		metadata = scraper.NewRodScraper(log)
	}
	describer := describe.NewService(client, metadata, cfg.LLMAPIKey, log)

	if cfg.TelegramBotToken != "" {
		botHandler, err := bot.NewHandler(cfg.TelegramBotToken, cfg.BaseURL, reg, describer, log)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			botHandler.Start(ctx)
		}()
	}

	handler := httpapi.NewHandler(reg, negotiator, describer, log)
	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           httpapi.NewRouter(handler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", cfg.ServerAddress).Info("QuickLook is listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("Shutting down QuickLook...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	return nil
}
