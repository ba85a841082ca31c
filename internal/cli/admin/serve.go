package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/api/handlers"
	"github.com/clearpath-coaching/hugoctx/internal/authz"
	"github.com/clearpath-coaching/hugoctx/internal/config"
	"github.com/clearpath-coaching/hugoctx/internal/database"
	"github.com/clearpath-coaching/hugoctx/internal/jobs"
	"github.com/clearpath-coaching/hugoctx/internal/openai"
	"github.com/clearpath-coaching/hugoctx/internal/repository"
	"github.com/clearpath-coaching/hugoctx/internal/server"
	"github.com/clearpath-coaching/hugoctx/internal/service"
	"github.com/clearpath-coaching/hugoctx/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the retrieval API server",
		Long:  "Start the hugoctx retrieval and context-assembly API server",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-decay", false, "Disable the periodic memory decay job")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewDocumentChunkRepository(pool)
	entryRepo := repository.NewKnowledgeEntryRepository(pool)
	memoryRepo := repository.NewUserMemoryRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	applicationRepo := repository.NewApplicationRepository(pool)
	tokenRepo := repository.NewAccessTokenRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		log.Println("embedding client configured")
	} else {
		log.Println("no embedding provider configured; text queries will be rejected")
	}

	queueCtx, stopQueue := context.WithCancel(ctx)
	defer stopQueue()
	touchQueue := service.NewTouchQueue(entryRepo, 0)
	go touchQueue.Start(queueCtx)

	owner := authz.NewOwnerAuthorizer()

	vectorSvc := service.NewVectorSearchService(chunkRepo, embeddingClient, cfg.EmbeddingDimensions)
	lexicalSvc := service.NewLexicalSearchService(entryRepo, touchQueue)
	memorySvc := service.NewMemoryService(memoryRepo, owner)
	conversationSvc := service.NewConversationService(conversationRepo, txRunner, owner)

	assembler := service.NewContextAssembler(
		applicationRepo,
		conversationRepo,
		memoryRepo,
		vectorSvc,
		lexicalSvc,
		owner,
		service.AssemblerConfig{
			FacetTimeout:   cfg.FacetTimeout,
			OverallTimeout: cfg.AssemblyTimeout,
		},
	)

	var decayWorker *jobs.Worker
	noDecay, _ := cmd.Flags().GetBool("no-decay")
	if !noDecay {
		decayProcessor := jobs.NewDecayWorker(memorySvc, cfg.DecayInactivityThreshold)
		decayWorker = jobs.NewWorker(decayProcessor, cfg.DecayInterval)
		go decayWorker.Start(ctx)
		log.Println("memory decay worker started")
	}

	routerCfg := server.RouterConfig{
		AuthValidator:       tokenRepo,
		SearchHandler:       handlers.NewSearchHandler(vectorSvc, lexicalSvc),
		MentionsHandler:     handlers.NewMentionsHandler(),
		ContextHandler:      handlers.NewContextHandler(assembler),
		ConversationHandler: handlers.NewConversationHandler(conversationSvc),
		MemoryHandler:       handlers.NewMemoryHandler(memorySvc),
		KnowledgeHandler:    handlers.NewKnowledgeHandler(entryRepo, touchQueue),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if decayWorker != nil {
		decayWorker.Stop()
	}
	stopQueue()
	touchQueue.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
