package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/config"
	"assessment-engine/internal/domain"
	"assessment-engine/internal/infra/memory"
	pgstore "assessment-engine/internal/infra/postgres"
	redisstore "assessment-engine/internal/infra/redis"
	transport "assessment-engine/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.DefinitionLoader = memory.NewStaticDefinitionLoader(sampleDefinitions())
	if pool != nil {
		loader = pgstore.NewDefinitionLoader(pool)
	}

	definitionTTL := config.TTLDuration(cfg.Definitions.TTL, 10*time.Minute)
	var definitions app.DefinitionRepository
	if redisClient != nil {
		definitions = redisstore.NewDefinitionRepository(redisClient, loader, definitionTTL)
	} else {
		definitions = memory.NewDefinitionRepository(loader, definitionTTL)
	}

	var attempts app.AttemptSource
	var results app.ResultStore
	var sessions app.SessionRepository
	if redisClient != nil {
		attempts = redisstore.NewAttemptCounter(redisClient)
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		attempts = memory.NewAttemptCounter()
		sessions = memory.NewSessionStore()
	}
	if pool != nil {
		results = pgstore.NewResultStore(pool)
	} else if redisClient != nil {
		results = redisstore.NewResultStore(redisClient)
	} else {
		results = memory.NewResultStore()
	}

	engine := app.NewEngine(definitions, attempts, results, sessions,
		app.WithComparators(sampleComparators()))
	wsHandler := transport.NewWSHandler(engine)
	reportHandler := transport.NewReportHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/report", reportHandler.ServeReport)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleDefinitions provides a minimal quiz for running without Postgres.
func sampleDefinitions() map[string]*domain.Definition {
	def, err := domain.NewDefinition("quiz-1",
		domain.Config{
			Title:                  "Onboarding check",
			PassingScore:           70,
			MaxAttempts:            3,
			AllowRetries:           true,
			ShowResultsImmediately: true,
			ShowCorrectAnswers:     true,
			TimeLimitMinutes:       5,
		},
		[]domain.Question{
			{
				ID:     "q1",
				Type:   domain.SingleChoice,
				Text:   "What is 2 + 2?",
				Points: 1,
				Options: []domain.AnswerOption{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true},
					{ID: "o3", Text: "5"},
				},
			},
			{
				ID:     "q2",
				Type:   domain.TrueFalse,
				Text:   "The sky is blue.",
				Points: 1,
				Options: []domain.AnswerOption{
					{ID: "true", Text: "True", Correct: true},
					{ID: "false", Text: "False"},
				},
			},
			{
				ID:     "q3",
				Type:   domain.FillInBlank,
				Text:   "Name the capital of France.",
				Points: 2,
			},
		},
	)
	if err != nil {
		log.Fatalf("sample definitions: %v", err)
	}
	return map[string]*domain.Definition{"quiz-1": def}
}

func sampleComparators() app.ComparatorSource {
	return app.ComparatorMap{
		"q3": app.NormalizedMatch("Paris"),
	}
}
