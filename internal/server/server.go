package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MechDevelopment/mrbeam-backend/internal/config"
	"github.com/MechDevelopment/mrbeam-backend/internal/handler"
	"github.com/MechDevelopment/mrbeam-backend/internal/inference"
	"github.com/MechDevelopment/mrbeam-backend/internal/repository"
	"github.com/MechDevelopment/mrbeam-backend/internal/service"
)

type Server struct {
	httpServer *http.Server
	db         *repository.DB
	archive    *service.ArchiveQueue
	cfg        *config.Config
	log        *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	db, err := repository.OpenDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	predictionRepo := repository.NewPredictionRepository(db, cfg.Database.QueryTimeout, log)

	s3Repo, err := repository.NewS3Repository(ctx, &cfg.S3, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create S3 repository: %w", err)
	}

	inferenceClient := inference.NewClient(cfg.Inference, log)
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := inferenceClient.Health(healthCtx); err != nil {
		log.Warn("Inference service is not reachable yet", zap.String("url", cfg.Inference.BaseURL), zap.Error(err))
	}
	cancel()

	archive := service.NewArchiveQueue(service.NewArchiver(s3Repo, log), cfg.Archive, log)
	predictionService := service.NewPredictionService(inferenceClient, predictionRepo, archive, s3Repo, log)

	h := handler.NewHandler(predictionService, cfg.App.MaxUploadSize, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(log))
	router.MaxMultipartMemory = cfg.App.MaxUploadSize

	h.Register(router)

	server := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Inference alone may take up to its own timeout for every attempt.
			WriteTimeout:   cfg.Inference.Timeout*time.Duration(cfg.Inference.MaxRetries+1) + 30*time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
		db:      db,
		archive: archive,
		cfg:     cfg,
		log:     log,
	}

	log.Info("Server created successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port))

	return server, nil
}

func (s *Server) Run() error {
	s.log.Info("Server is running",
		zap.String("host", s.cfg.Server.Host),
		zap.String("port", s.cfg.Server.Port),
		zap.String("address", s.httpServer.Addr))

	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for pending archive uploads
// and closes the database. All steps run even if an earlier one fails.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := s.archive.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("archive queue: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	return errors.Join(errs...)
}
