package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/textfill/textfill/internal/api"
	"github.com/textfill/textfill/internal/auth"
	"github.com/textfill/textfill/internal/catalog"
	catalogfile "github.com/textfill/textfill/internal/catalog/file"
	catalogobjectstore "github.com/textfill/textfill/internal/catalog/objectstore"
	catalogpostgres "github.com/textfill/textfill/internal/catalog/postgres"
	"github.com/textfill/textfill/internal/config"
	"github.com/textfill/textfill/internal/export"
	"github.com/textfill/textfill/internal/fonts"
	"github.com/textfill/textfill/internal/generator"
	"github.com/textfill/textfill/internal/host/memory"
	"github.com/textfill/textfill/internal/observability"
	"github.com/textfill/textfill/internal/plugin"
	"github.com/textfill/textfill/internal/storage"
	s3store "github.com/textfill/textfill/internal/storage/s3"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("textfill-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var objectStore storage.ObjectStore
	if cfg.ObjectStore.Endpoint != "" {
		objectStore, err = s3store.New(ctx, s3store.ConfigFrom(cfg.ObjectStore))
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var catalogDB *sql.DB
	if cfg.Vocabulary.Source == config.VocabularyPostgres {
		catalogDB, err = catalogpostgres.Open(ctx, catalogpostgres.DBConfigFrom(cfg.Catalog))
		if err != nil {
			logger.Error("failed to open catalog db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = catalogDB.Close() }()
	}

	loader, err := vocabularyLoader(cfg, catalogDB, objectStore)
	if err != nil {
		logger.Error("failed to configure vocabulary source", slog.Any("error", err))
		os.Exit(1)
	}
	vocab, err := catalog.LoadValidated(ctx, loader)
	if err != nil {
		logger.Error("failed to load vocabulary",
			slog.String("source", string(cfg.Vocabulary.Source)),
			slog.Any("error", err),
		)
		os.Exit(1)
	}

	var source generator.Source
	if cfg.Generator.Seed != 0 {
		source = generator.NewSeededSource(cfg.Generator.Seed)
	}
	gen, err := generator.New(vocab, source)
	if err != nil {
		logger.Error("failed to build generator", slog.Any("error", err))
		os.Exit(1)
	}

	doc, err := openDocument(cfg)
	if err != nil {
		logger.Error("failed to open document", slog.Any("error", err))
		os.Exit(1)
	}
	candidates, err := fonts.ParseCandidates(cfg.Fonts.Candidates)
	if err != nil {
		logger.Error("invalid font candidates", slog.Any("error", err))
		os.Exit(1)
	}
	session, err := plugin.NewSession(doc, gen, plugin.Options{
		FontCandidates: candidates,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to start plugin session", slog.Any("error", err))
		os.Exit(1)
	}
	exporter, err := export.NewService(gen, objectStore, cfg.Export.MaxRows)
	if err != nil {
		logger.Error("failed to build sample exporter", slog.Any("error", err))
		os.Exit(1)
	}

	readiness := []api.ReadinessCheck{api.CheckCatalogDSN(cfg)}
	if catalogDB != nil {
		readiness = append(readiness, catalogpostgres.NewRepository(catalogDB).HealthCheck)
	}
	if objectStore != nil {
		readiness = append(readiness, api.CheckObjectStoreConfig(cfg))
	}

	deps := api.Dependencies{
		Logger:            logger,
		Session:           session,
		Generator:         gen,
		Document:          doc,
		Exporter:          exporter,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("vocabulary_source", string(cfg.Vocabulary.Source)),
			slog.Int("document_nodes", len(doc.Nodes())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
	if err := doc.Close(shutdownCtx); err != nil {
		logger.Warn("document close failed", slog.Any("error", err))
	}
}

func vocabularyLoader(cfg config.Config, db *sql.DB, store storage.ObjectStore) (catalog.Loader, error) {
	switch cfg.Vocabulary.Source {
	case config.VocabularyBuiltin:
		return catalog.Builtin{}, nil
	case config.VocabularyFile:
		return catalogfile.NewFromPath(cfg.Vocabulary.Path)
	case config.VocabularyPostgres:
		if db == nil {
			return nil, fmt.Errorf("catalog db is not open")
		}
		return catalogpostgres.NewRepository(db), nil
	case config.VocabularyObjectStore:
		if store == nil {
			return nil, fmt.Errorf("object store is not configured")
		}
		return catalogobjectstore.New(store, cfg.Vocabulary.Key)
	default:
		return nil, fmt.Errorf("unknown vocabulary source %q", cfg.Vocabulary.Source)
	}
}

// openDocument returns the fixture document, or an empty page with the
// candidate fonts installed.
func openDocument(cfg config.Config) (*memory.Document, error) {
	if cfg.Document.Fixture == "" {
		candidates, err := fonts.ParseCandidates(cfg.Fonts.Candidates)
		if err != nil {
			return nil, err
		}
		return memory.New(candidates...), nil
	}
	f, err := os.Open(cfg.Document.Fixture)
	if err != nil {
		return nil, fmt.Errorf("open document fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	return memory.LoadFixture(f)
}
