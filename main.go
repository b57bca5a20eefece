package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/app"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/database"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/pkg/logger"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations(os.Args[2:])
			return
		case "worker":
			runWorker()
			return
		case "compare":
			if len(os.Args) != 4 {
				fmt.Fprintln(os.Stderr, "usage: similarity-service compare <file_a> <file_b>")
				os.Exit(2)
			}
			runCompare(os.Args[2], os.Args[3])
			return
		}
	}

	runServer()
}

func loadConfig() (*config.Config, zerolog.Logger) {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	return cfg, logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)
}

func runServer() {
	cfg, log := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Database connection established")

	application, err := app.New(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	go func() {
		if err := application.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to run application")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}
}

func runWorker() {
	cfg, log := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	application, err := app.New(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	log.Info().Msg("Starting standalone scan worker...")
	if err := application.RunWorker(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to run scan worker")
		stop()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}
}

// runMigrations handles `migrate [up|down|version|force <version>]`; the
// default is up.
func runMigrations(args []string) {
	cfg, log := loadConfig()

	command, forceVersion, err := parseMigrateArgs(args)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid migrate arguments")
	}

	migrator, err := database.NewMigrator(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}

	switch command {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied successfully")
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("Failed to rollback migrations")
		}
		log.Info().Msg("Migrations rolled back successfully")
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migration version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current migration version")
	case "force":
		if err := migrator.Force(forceVersion); err != nil {
			log.Fatal().Err(err).Msg("Failed to force migration version")
		}
		log.Info().Int("version", forceVersion).Msg("Migration version forced")
	}
}

func parseMigrateArgs(args []string) (string, int, error) {
	if len(args) == 0 {
		return "up", 0, nil
	}

	switch args[0] {
	case "up", "down", "version":
		if len(args) > 1 {
			return "", 0, fmt.Errorf("migrate %s takes no arguments", args[0])
		}
		return args[0], 0, nil
	case "force":
		if len(args) != 2 {
			return "", 0, errors.New("usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return "", 0, fmt.Errorf("invalid migration version %q: %w", args[1], err)
		}
		return "force", version, nil
	default:
		return "", 0, fmt.Errorf("unknown migrate command %q, use up, down, version or force <version>", args[0])
	}
}

// runCompare scores two local files and prints the result as JSON. It needs
// neither the database nor the broker.
func runCompare(pathA, pathB string) {
	cfg, log := loadConfig()

	codeA, err := os.ReadFile(pathA)
	if err != nil {
		log.Fatal().Err(err).Str("path", pathA).Msg("Failed to read file")
	}
	codeB, err := os.ReadFile(pathB)
	if err != nil {
		log.Fatal().Err(err).Str("path", pathB).Msg("Failed to read file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine := app.NewEngine(cfg.Analysis, log)
	result, highlight, err := engine.ComparePair(ctx,
		models.Submission{ID: "a", Filename: filepath.Base(pathA), CodeContent: string(codeA)},
		models.Submission{ID: "b", Filename: filepath.Base(pathB), CodeContent: string(codeB)},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Comparison failed")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(models.CompareResponse{Result: result, Highlight: highlight}); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
}
