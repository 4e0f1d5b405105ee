package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genbi/internal/api"
	"genbi/internal/config"
	internaldb "genbi/internal/db"
	"genbi/internal/db/repository"
	"genbi/internal/domain"
	"genbi/internal/genai"
	"genbi/internal/middleware"
	"genbi/internal/schemaindex"
	"genbi/internal/service/pipeline"
	"genbi/internal/service/planner"
	"genbi/internal/service/security"
	"genbi/internal/service/synth"
)

// seedAdmin creates the bootstrap admin principal when the metastore is
// empty. Idempotent: an existing principal set means a prior boot seeded it.
func seedAdmin(ctx context.Context, repo *repository.PrincipalRepo, logger *slog.Logger) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	secret := os.Getenv("ADMIN_SECRET")
	if secret == "" {
		secret = "admin"
		logger.Warn("ADMIN_SECRET not set — seeding admin with insecure default secret")
	}
	_, err = repo.Create(ctx, &domain.CreatePrincipalRequest{
		Name:    "admin",
		Type:    "user",
		Secret:  secret,
		IsAdmin: true,
	})
	if err != nil {
		return err
	}
	logger.Info("seeded bootstrap admin principal", "name", "admin")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// Metastore: principals, grants, audit. Single writer, pooled readers.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 4)
	if err != nil {
		return err
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	// Target database: queries and introspection only, so a read pool is
	// all the gateway ever holds.
	targetDB, err := internaldb.OpenSQLite(cfg.TargetDBPath, "read", 4)
	if err != nil {
		return err
	}
	defer targetDB.Close()

	principalRepo := repository.NewPrincipalRepo(writeDB, readDB)
	grantRepo := repository.NewGrantRepo(writeDB, readDB)
	auditRepo := repository.NewAuditRepo(writeDB, readDB)

	if err := seedAdmin(ctx, principalRepo, logger); err != nil {
		return err
	}

	var client domain.GenerativeClient
	if cfg.Model.Remote() {
		client = genai.NewHTTPClient(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Name, logger)
		logger.Info("using remote model endpoint", "base_url", cfg.Model.BaseURL, "model", cfg.Model.Name)
	} else {
		client = genai.NewTemplateClient()
	}

	index := schemaindex.New(
		internaldb.NewIntrospector(targetDB, cfg.DatabaseName),
		schemaindex.NewHashEmbedder(),
		logger,
	)
	if err := index.Refresh(ctx); err != nil {
		return err
	}

	patterns, err := synth.LoadPatternLibrary()
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(pipeline.RunnerParams{
		Classifier: planner.NewClassifier(client, cfg.Model.ClassifyTimeout, logger),
		Expander: planner.NewExpander(index, planner.ExpanderOptions{
			TopK:      cfg.ExpandTopK,
			MaxHops:   cfg.ExpandHops,
			MaxTables: cfg.ExpandTables,
		}, logger),
		Synthesizer: synth.NewSynthesizer(client, patterns, cfg.Model.SynthesizeTimeout, logger),
		Validator:   synth.NewValidator(cfg.MaxRows, logger),
		Grants:      grantRepo,
		Engine:      internaldb.NewExecutor(targetDB, 0),
		Audit:       auditRepo,
		Database:    cfg.DatabaseName,
		MaxAttempts: cfg.MaxAttempts,
	}, logger)

	issuer, err := middleware.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.HandlerParams{
		Issuer:      issuer,
		Credentials: repository.NewCredentialStore(principalRepo, grantRepo),
		Runner:      runner,
		Suggester:   pipeline.NewSuggester(index, cfg.DatabaseName),
		Refresher:   index,
		Searcher:    index,
		Principals:  security.NewPrincipalService(principalRepo, logger),
		Grants:      security.NewGrantService(grantRepo, principalRepo, logger),
		Audit:       auditRepo,
		Database:    cfg.DatabaseName,
	}, logger)

	router := handler.Router(api.RouterOptions{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	if cfg.RefreshSchedule != "" {
		scheduler, err := pipeline.NewScheduler(index, cfg.RefreshSchedule, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("query gateway listening", "addr", cfg.ListenAddr, "database", cfg.DatabaseName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
