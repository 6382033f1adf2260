package main

import (
	"time"

	"github.com/ibeanthere/checkin-engine-go/internal/api"
	"github.com/ibeanthere/checkin-engine-go/internal/checkin"
	"github.com/ibeanthere/checkin-engine-go/internal/config"
	"github.com/ibeanthere/checkin-engine-go/internal/database"
	"github.com/ibeanthere/checkin-engine-go/internal/detector"
	"github.com/ibeanthere/checkin-engine-go/internal/geolocation"
	"github.com/ibeanthere/checkin-engine-go/internal/handler"
	"github.com/ibeanthere/checkin-engine-go/internal/logger"
	"github.com/ibeanthere/checkin-engine-go/internal/placecache"
	"github.com/ibeanthere/checkin-engine-go/internal/remote"
	"github.com/ibeanthere/checkin-engine-go/internal/service"
)

func main() {
	logger.Init()
	log := logger.Log

	cfg := config.Load()

	// Cache database. A failure disables caching, it never blocks startup.
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Warn().Str("error", err.Error()).Msg("cache store unavailable, running without cache")
		db = nil
	} else {
		defer db.Close()
	}

	cache := placecache.New(db, logger.With("placecache"))

	// External collaborators
	placesClient := remote.NewPlacesClient(cfg.PlacesAPIBaseURL)
	visitsClient := remote.NewVisitsClient(cfg.VisitsAPIBaseURL)

	// Engine
	source := geolocation.NewPushSource()
	provider := geolocation.NewProvider(source, geolocation.DefaultConfig(), logger.With("geolocation"))

	detectorCfg := detector.DefaultConfig()
	detectorCfg.ProximityRadiusMeters = cfg.ProximityRadiusMeters
	detectorCfg.EvaluationInterval = cfg.EvaluationInterval
	detectorCfg.MinDwell = cfg.MinDwell
	detectorCfg.MaxDwell = cfg.MaxDwell
	det := detector.New(detectorCfg, logger.With("detector"))

	recorderCfg := checkin.DefaultConfig()
	recorderCfg.HardRadiusMeters = cfg.HardRadiusMeters
	recorder := checkin.NewRecorder(visitsClient, recorderCfg, logger.With("checkin"))

	// Services
	nearbySvc := service.NewNearbyService(cache, placesClient, logger.With("nearby"))
	checkinSvc := service.NewCheckInService(nearbySvc, recorder, logger.With("checkin"))
	trackingSvc := service.NewTrackingService(provider, det, nearbySvc, recorder, logger.With("tracking"))

	// Hourly eviction sweep for expired cache entries
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			cache.EvictExpired()
		}
	}()

	router := api.SetupRouter(cfg, api.Handlers{
		Nearby:   handler.NewNearbyHandler(nearbySvc),
		CheckIn:  handler.NewCheckInHandler(checkinSvc),
		Tracking: handler.NewTrackingHandler(trackingSvc),
		Location: handler.NewLocationHandler(source, provider),
	})

	log.Info().Str("port", cfg.Port).Msg("check-in engine starting")
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal().Str("error", err.Error()).Msg("failed to start server")
	}
}
