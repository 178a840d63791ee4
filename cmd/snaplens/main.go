package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"snaplens/internal/analysis"
	anthropicprovider "snaplens/internal/analysis/anthropic"
	"snaplens/internal/analysis/custom"
	"snaplens/internal/analysis/openai"
	"snaplens/internal/camera"
	"snaplens/internal/camera/filecam"
	"snaplens/internal/config"
	"snaplens/internal/db"
	"snaplens/internal/logging"
	"snaplens/internal/photostore/local"
	"snaplens/internal/service"
	"snaplens/internal/settings"
	"snaplens/internal/store"
	"snaplens/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	records := store.NewRecordStore(database)
	settingsStore := settings.NewStore(database)

	photoStg, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	var devices []camera.Device
	if cfg.CameraDir != "" {
		interval := time.Second / time.Duration(max(cfg.CameraFPS, 1))
		dev, err := filecam.Open(cfg.CameraDir, interval, camera.FacingRear)
		if err != nil {
			logger.Error("failed to open camera feed directory", "error", err)
			return
		}
		devices = append(devices, dev)
	}

	source := camera.NewSource(devices, camera.AllowAll{}, logger)
	defer func() {
		if err := source.Close(); err != nil {
			logger.Error("failed to close capture source", "error", err)
		}
	}()

	// Initialization suspends on the permission gate; keep it off the main
	// goroutine so startup stays responsive.
	go func() {
		if err := source.Initialize(context.Background()); err != nil {
			logger.Error("camera initialization failed", "error", err)
		}
	}()

	httpClient := &http.Client{}
	client := analysis.NewClient(newPrimaryProvider(cfg, httpClient), custom.New(httpClient), logger)

	baseCfg := analysis.Config{
		Endpoint:    cfg.Endpoint,
		Credential:  cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	svc := service.NewPipelineService(source, client, records, photoStg, settingsStore, baseCfg, logger)

	if err := svc.ApplySettings(context.Background()); err != nil {
		logger.Error("failed to apply persisted settings", "error", err)
		return
	}

	server := web.NewServer(svc, cfg.AnalyzeTimeout, logger)
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newPrimaryProvider(cfg *config.Config, httpClient *http.Client) analysis.Provider {
	switch cfg.Provider {
	case "anthropic":
		return anthropicprovider.New()
	default:
		return openai.New(httpClient)
	}
}
