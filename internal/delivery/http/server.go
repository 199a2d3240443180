package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/config"
	"github.com/poi-insight/internal/delivery/http/handler"
	"github.com/poi-insight/internal/delivery/http/middleware"
)

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	// Handlers
	analysisHandler *handler.AnalysisHandler
	serviceHandler  *handler.ServiceHandler
}

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	analysisHandler *handler.AnalysisHandler,
	serviceHandler *handler.ServiceHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "POI Insight",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:             app,
		config:          cfg,
		logger:          logger,
		analysisHandler: analysisHandler,
		serviceHandler:  serviceHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	// Swagger documentation route
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")

	// Service routes
	api.Get("/health", s.serviceHandler.Health)
	api.Get("/stats", s.serviceHandler.GetStatistics)
	api.Get("/classify", s.serviceHandler.Classify)

	// Engine control routes
	api.Post("/engine/init", s.analysisHandler.Init)
	api.Post("/engine/indexes", s.analysisHandler.BuildIndexes)

	// Map viewport routes
	api.Post("/map/query", s.analysisHandler.Query)
	api.Post("/map/expand", s.analysisHandler.Expand)

	// Isochrone scope routes
	api.Post("/isochrone", s.analysisHandler.ApplyIsochrone)
	api.Delete("/isochrone", s.analysisHandler.ClearIsochrone)

	// Analysis routes
	api.Post("/stats/bbox", s.analysisHandler.BBoxStats)
	api.Post("/site-selection", s.analysisHandler.SiteSelect)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - кастомный обработчик ошибок
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": err.Error(),
			},
		})
	}
}
