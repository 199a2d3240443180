package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poi-insight/internal/cluster"
	"github.com/poi-insight/internal/config"
	"github.com/poi-insight/internal/domain/repository"
	"github.com/poi-insight/internal/engine"
	"github.com/poi-insight/internal/pkg/logger"
	"github.com/poi-insight/internal/repository/cache"
	"github.com/poi-insight/internal/repository/dataset"
	"github.com/poi-insight/internal/repository/postgres"
	redisRepo "github.com/poi-insight/internal/repository/redis"
	"github.com/poi-insight/internal/siteselect"
	"github.com/poi-insight/internal/worker"
	"github.com/poi-insight/internal/worker/analysis"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting POI Analysis Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.String("consumer", cfg.Worker.Consumer),
		zap.String("dataset_source", cfg.Dataset.Source),
		zap.Duration("cache_ttl", cfg.Worker.CacheTTL))

	// 3. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Health(healthCtx); err != nil {
		healthCancel()
		log.Fatal("Redis health check failed", zap.Error(err))
	}
	healthCancel()
	log.Info("Redis connected")

	// 4. Build dataset source: PostgreSQL or file/HTTP loader
	var datasets repository.DatasetRepository

	if cfg.Dataset.Source == "postgres" {
		db, err := postgres.New(&cfg.Database, log)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close PostgreSQL connection", zap.Error(err))
			}
		}()
		log.Info("PostgreSQL connected", zap.String("table", cfg.Dataset.Table))

		datasets = postgres.NewDatasetRepository(db, cfg.Dataset.Table, cfg.Dataset.RawTypes, log)
	} else {
		datasets = dataset.NewLoader(cfg.Dataset.FetchTimeout, log)
	}

	rulesets := dataset.NewRulesetLoader(cfg.Dataset.FetchTimeout, log)

	// 5. Initialize analysis engine
	eng := engine.New(engine.Config{
		Cluster: cluster.Options{
			MinZoom:   cfg.Cluster.MinZoom,
			MaxZoom:   cfg.Cluster.MaxZoom,
			Radius:    cfg.Cluster.Radius,
			Extent:    cfg.Cluster.Extent,
			NodeSize:  cfg.Cluster.NodeSize,
			MinPoints: cfg.Cluster.MinPoints,
		},
		GridCellSize: cfg.Grid.CellSize,
		Site: siteselect.Config{
			SpacingMeters:      cfg.Site.SpacingMeters,
			MaxCandidates:      cfg.Site.MaxCandidates,
			MetricRadiusMeters: cfg.Site.MetricRadiusMeters,
			AccessCapMeters:    cfg.Site.AccessCapMeters,
			TopN:               cfg.Site.TopN,
		},
		HullMaxZoom:          cfg.Engine.HullMaxZoom,
		HullMinPoints:        cfg.Engine.HullMinPoints,
		SiteBBoxLimitDegrees: cfg.Site.BBoxLimitDegrees,
		QueueSize:            cfg.Engine.QueueSize,
		Defaults: engine.InitRequest{
			DatasetSource: cfg.Dataset.Source,
			RulesetSource: cfg.Ruleset.Source,
			CoordSys:      cfg.Dataset.CoordSys,
		},
	}, datasets, rulesets, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	// 6. Load and classify the initial dataset
	initResp := eng.Do(ctx, engine.Request{Kind: engine.KindInit})
	if initResp.IsError() {
		if p, ok := initResp.Payload.(engine.ErrorPayload); ok {
			log.Fatal("Initial dataset load failed",
				zap.String("code", p.Code),
				zap.String("message", p.Message),
			)
		}
		log.Fatal("Initial dataset load failed")
	}
	log.Info("Dataset loaded and classified")

	// 7. Initialize repositories
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)
	cacheRepo := cache.NewCacheRepository(redisClient)

	// 8. Initialize workers
	analysisWorker := analysis.NewAnalysisWorker(
		eng,
		streamRepo,
		cacheRepo,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.Consumer,
		cfg.Worker.CacheTTL,
		log,
	)

	// 9. Create worker manager and register workers
	workerManager := worker.NewManager(log)
	workerManager.Register(analysisWorker)

	// Start workers
	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	// Cancel context to stop workers
	cancel()

	// Stop worker manager
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
