package main

// @title POI Insight API
// @version 1.0.0
// @description Сервис пространственного анализа точек интереса (POI). Загружает сырой набор точек, классифицирует его по функциональным группам и отвечает на аналитические запросы: кластеры для карты, ограничение изохроной, статистика по прямоугольнику и подбор площадок.
// @description
// @description Основные возможности:
// @description - Загрузка набора точек из файла, по HTTP или из PostgreSQL
// @description - Классификация точек по настраиваемому набору правил
// @description - Кластеры с выпуклыми оболочками для отображения по зумам
// @description - Ограничение анализа областью изохроны (GeoJSON)
// @description - Счётная статистика по прямоугольнику и плотностной сетке
// @description - Скоринг кандидатных площадок по пяти метрикам

// @contact.name API Support
// @contact.email support@poi-insight.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/poi-insight/docs"
	"github.com/poi-insight/internal/cluster"
	"github.com/poi-insight/internal/config"
	httpDelivery "github.com/poi-insight/internal/delivery/http"
	"github.com/poi-insight/internal/delivery/http/handler"
	"github.com/poi-insight/internal/domain/repository"
	"github.com/poi-insight/internal/engine"
	"github.com/poi-insight/internal/pkg/logger"
	"github.com/poi-insight/internal/repository/dataset"
	"github.com/poi-insight/internal/repository/postgres"
	"github.com/poi-insight/internal/siteselect"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting POI Insight")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("dataset_source", cfg.Dataset.Source),
	)

	// 3. Build dataset source: PostgreSQL or file/HTTP loader
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

		healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.Health(healthCtx); err != nil {
			healthCancel()
			log.Fatal("PostgreSQL health check failed", zap.Error(err))
		}
		healthCancel()
		log.Info("PostgreSQL connected", zap.String("table", cfg.Dataset.Table))

		datasets = postgres.NewDatasetRepository(db, cfg.Dataset.Table, cfg.Dataset.RawTypes, log)
	} else {
		datasets = dataset.NewLoader(cfg.Dataset.FetchTimeout, log)
	}

	rulesets := dataset.NewRulesetLoader(cfg.Dataset.FetchTimeout, log)

	log.Info("Repositories initialized")

	// 4. Initialize analysis engine
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

	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()
	go eng.Run(engineCtx)

	log.Info("Analysis engine started")

	// 5. Load and classify the initial dataset
	initResp := eng.Do(engineCtx, engine.Request{Kind: engine.KindInit})
	if initResp.IsError() {
		if p, ok := initResp.Payload.(engine.ErrorPayload); ok {
			log.Fatal("Initial dataset load failed",
				zap.String("code", p.Code),
				zap.String("message", p.Message),
			)
		}
		log.Fatal("Initial dataset load failed")
	}
	if done, ok := initResp.Payload.(*engine.InitDone); ok {
		log.Info("Dataset loaded and classified",
			zap.Int("total_count", done.TotalCount),
			zap.Int("dropped_records", done.DroppedRecords),
			zap.Uint64("generation", done.Generation),
			zap.String("ruleset", done.RulesetMeta.Name),
		)
	}

	// 6. Initialize HTTP Handlers
	analysisHandler := handler.NewAnalysisHandler(eng, log)
	serviceHandler := handler.NewServiceHandler(eng, log)

	log.Info("HTTP handlers initialized")

	// 7. Initialize HTTP Server
	server := httpDelivery.NewServer(
		cfg,
		log,
		analysisHandler,
		serviceHandler,
	)

	log.Info("HTTP server initialized")

	// 8. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	// Stop the engine loop
	engineCancel()

	log.Info("Server stopped successfully")
}
