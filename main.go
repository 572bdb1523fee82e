package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-tracker/internal/api"
	"crypto-tracker/internal/config"
	"crypto-tracker/internal/database"
	"crypto-tracker/internal/logging"
	"crypto-tracker/internal/pipeline"
	"crypto-tracker/internal/scheduler"
	"crypto-tracker/internal/services/coingecko"
	"crypto-tracker/internal/workbook"

	"github.com/gin-gonic/gin"
)

var configPath = flag.String("config", "etc/tracker.yaml", "optional YAML config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, logFile, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()

	writer := workbook.NewWriter(cfg.WorkbookPath, logger)
	if err := writer.Bootstrap(); err != nil {
		log.Fatalf("Failed to create %s: %v", cfg.WorkbookPath, err)
	}

	fetcher := coingecko.NewClient(coingecko.Config{
		BaseURL:        cfg.APIURL,
		VsCurrency:     cfg.VsCurrency,
		PerPage:        cfg.PerPage,
		Timeout:        cfg.Timeout,
		MaxAttempts:    cfg.MaxAttempts,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
	}, logger)

	jobOpts := []pipeline.JobOption{}

	var history *database.HistoryStore
	if cfg.DatabaseURL != "" {
		db, err := database.Initialize(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		history = database.NewHistoryStore(db)
		jobOpts = append(jobOpts, pipeline.WithArchiver(history))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	var hub *api.Hub
	if cfg.StatusAddr != "" {
		hub = api.NewHub()
		state := api.NewState(hub)
		jobOpts = append(jobOpts, pipeline.WithListener(state))

		gin.SetMode(gin.ReleaseMode)
		var reader api.HistoryReader
		if history != nil {
			reader = history
		}
		srv = &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           api.NewRouter(state, hub, reader),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("Status server listening on %s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Status server stopped: %v", err)
			}
		}()
	}

	job := pipeline.NewJob(fetcher, writer, logger, jobOpts...)
	log.Printf("Tracking top %d coins every %s into %s (pid %d)", cfg.PerPage, cfg.Interval, cfg.WorkbookPath, os.Getpid())

	scheduler.New(cfg.Interval, job, logger).Run(ctx)

	if srv != nil {
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Status server shutdown: %v", err)
		}
	}
	log.Println("Tracker stopped")
}
