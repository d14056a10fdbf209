package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/config"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/infra/memory"
	pgcatalog "github.com/kevinbarfleur/cinequiz-sub000/internal/infra/postgres"
	rediscatalog "github.com/kevinbarfleur/cinequiz-sub000/internal/infra/redis"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/persist"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/session"
	transport "github.com/kevinbarfleur/cinequiz-sub000/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz session server",
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.CatalogLoader
	switch {
	case pool != nil:
		catalogID := cfg.Catalog.ID
		if catalogID == "" {
			catalogID = "default"
		}
		loader = pgcatalog.NewCatalogLoader(pool, catalogID)
	case cfg.Catalog.Path != "":
		loader = memory.NewFileCatalogLoader(cfg.Catalog.Path)
	default:
		loader = memory.NewStaticCatalogLoader(sampleCatalog())
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 24*time.Hour)
	var repo memory.CatalogLoader
	if redisClient != nil {
		repo = rediscatalog.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		repo = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var store persist.Store
	if redisClient != nil {
		store = rediscatalog.NewKVStore(redisClient)
	} else {
		store = memory.NewKVStore()
	}
	gateway := persist.NewGateway(store)

	sess := session.New()
	questions, err := repo.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if !sess.LoadQuestions(questions) {
		log.Printf("catalog rejected: %s", sess.Err())
	}
	if gateway.RestoreInterruptedSession(ctx, sess) {
		log.Printf("restored interrupted session")
	}

	wsHandler := transport.NewWSHandler(sess, gateway)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting cinequiz server on :%s", finalPort)
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

	saveCtx, cancelSave := context.WithTimeout(context.Background(), 2*time.Second)
	gateway.AutoSave(saveCtx, sess)
	cancelSave()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog provides a minimal question set for running without a
// database or catalog file.
func sampleCatalog() []domain.Question {
	return []domain.Question{
		{
			ID:           "q1",
			Text:         "Which director shot the long hallway fight in Oldboy in one take?",
			Answers:      []string{"Bong Joon-ho", "Park Chan-wook", "Kim Jee-woon"},
			CorrectIndex: 1,
			Category:     "cinema",
		},
		{
			ID:           "q2",
			Text:         "Which film won the first Academy Award for Best Picture?",
			Answers:      []string{"Wings", "Sunrise", "Metropolis", "The Jazz Singer"},
			CorrectIndex: 0,
			Category:     "cinema",
		},
	}
}
