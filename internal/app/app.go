package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/delivery/httpd"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service/analyzer"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service/integration"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/worker"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/worker/queue"
)

type App struct {
	server       *http.Server
	logger       zerolog.Logger
	config       *config.Config
	db           *sql.DB
	scanWorker   queue.ScanWorker
	rabbitMQRepo repository.RabbitMQRepository
}

// NewEngine builds the comparison engine from the analysis settings.
func NewEngine(cfg config.AnalysisConfig, log zerolog.Logger) analyzer.PlagiarismEngine {
	tokenizer := analyzer.NewTokenizer()

	calculator := analyzer.NewSimilarityCalculator(tokenizer, analyzer.CalculatorConfig{
		JaccardWeight: cfg.JaccardWeight,
		LCSWeight:     cfg.LCSWeight,
		MaxLCSTokens:  cfg.MaxLCSTokens,
	})

	highlighter := analyzer.NewHighlightGenerator(tokenizer, analyzer.HighlightConfig{
		MaxRegions: cfg.MaxHighlightRegions,
	})

	return analyzer.NewPlagiarismEngine(
		tokenizer,
		calculator,
		highlighter,
		log.With().Str("component", "engine").Logger(),
		analyzer.EngineConfig{
			MaxWorkers:              cfg.MaxWorkers,
			PairTimeout:             cfg.PairTimeout,
			FastPrefixLength:        cfg.FastHashPrefixLength,
			FastMinScore:            cfg.FastMinScore,
			HighSimilarityThreshold: cfg.HighSimilarityThreshold,
		},
	)
}

func newContentLoader(ctx context.Context, cfg *config.Config, log zerolog.Logger) (integration.ContentLoader, error) {
	switch cfg.Content.Source {
	case config.ContentSourceFileService:
		return integration.NewFileClient(
			cfg.Services.File.URL,
			cfg.Services.File.FilesEndpoint,
			cfg.Services.File.Timeout,
			cfg.Services.File.RetryCount,
			cfg.Services.File.RetryDelay,
			log,
		), nil
	case config.ContentSourceMinio:
		return integration.NewMinioLoader(ctx, integration.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		}, log)
	default:
		return integration.NewInlineLoader(), nil
	}
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	rabbitMQRepo, err := repository.NewRabbitMQRepository(cfg.RabbitMQ.URL, log)
	if err != nil {
		return nil, err
	}

	if err := rabbitMQRepo.SetupQueue(
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.RoutingKey,
		cfg.RabbitMQ.PrefetchCount,
	); err != nil {
		_ = rabbitMQRepo.Close()
		return nil, err
	}

	rabbitMQPublisher := queue.NewRabbitMQPublisher(rabbitMQRepo.Channel(), log)
	rabbitMQConsumer := queue.NewRabbitMQConsumer(
		rabbitMQRepo.Channel(),
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.ConsumerTag,
		log,
	)

	loader, err := newContentLoader(ctx, cfg, log)
	if err != nil {
		_ = rabbitMQRepo.Close()
		return nil, fmt.Errorf("failed to create content loader: %w", err)
	}

	reportRepo := repository.NewReportRepository(db, log)
	submissionRepo := repository.NewSubmissionRepository(db, log)
	similarityRepo := repository.NewSimilarityRepository(db, log)

	engine := NewEngine(cfg.Analysis, log)
	tracker := service.NewProgressTracker()

	scanService := service.NewScanService(
		reportRepo,
		submissionRepo,
		similarityRepo,
		loader,
		engine,
		rabbitMQPublisher,
		tracker,
		log,
		service.ScanConfig{
			Exchange:            cfg.RabbitMQ.Exchange,
			RequestedRoutingKey: cfg.RabbitMQ.RoutingKey,
			CompletedRoutingKey: cfg.RabbitMQ.CompletedRoutingKey,
			DefaultThreshold:    cfg.Analysis.HighSimilarityThreshold,
			MaxSubmissions:      cfg.Analysis.MaxSubmissions,
			ScanTimeout:         cfg.Analysis.ScanTimeout,
		},
	)

	reportService := service.NewReportService(
		reportRepo,
		similarityRepo,
		tracker,
		log,
	)

	workerPool := worker.NewWorkerPool(cfg.Analysis.ScanWorkers, log)
	messageHandler := queue.NewMessageHandler(scanService, log)

	scanWorker := queue.NewScanWorker(
		workerPool,
		rabbitMQConsumer,
		messageHandler,
		log,
	)

	handler := httpd.NewHandler(
		scanService,
		reportService,
		scanWorker.GetStats,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:       server,
		logger:       log,
		config:       cfg,
		db:           db,
		scanWorker:   scanWorker,
		rabbitMQRepo: rabbitMQRepo,
	}, nil
}

// Run starts the scan worker and serves HTTP until Shutdown.
func (a *App) Run(ctx context.Context) error {
	if err := a.RunWorker(ctx); err != nil {
		return err
	}

	a.logger.Info().Msgf("Starting similarity service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunWorker starts only the queue consumer.
func (a *App) RunWorker(ctx context.Context) error {
	if err := a.scanWorker.Start(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to start scan worker")
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down similarity service...")

	var shutdownErr error
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
		shutdownErr = err
	}

	if err := a.scanWorker.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop scan worker")
	}

	if a.rabbitMQRepo != nil {
		if err := a.rabbitMQRepo.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("Similarity service stopped")
	return shutdownErr
}
