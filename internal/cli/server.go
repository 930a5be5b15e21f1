package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	infraredis "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// roomToucher is implemented by registries that hold an expiring claim per room.
type roomToucher interface {
	Touch(ctx context.Context, code string) error
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(cfg.Auth.Secret)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var db *bun.DB
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		db = openBun(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	} else {
		log.Printf("postgres not configured, serving the built-in demo quiz")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo interface {
		app.QuizRepository
		transport.QuizReader
	}
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var results interface {
		app.ResultStore
		transport.ResultReader
	}
	switch {
	case db != nil:
		results = postgres.NewResultStore(db)
	case redisClient != nil:
		results = infraredis.NewResultStore(redisClient)
	default:
		log.Printf("no result store configured, results are kept in memory only")
		results = memory.NewResultStore()
	}

	var rooms app.RoomRepository
	capacity := memory.WithCapacity(cfg.Rooms.MaxRooms)
	if redisClient != nil {
		rooms = infraredis.NewRoomStore(redisClient, redisTTL, capacity)
	} else {
		rooms = memory.NewRoomStore(capacity)
	}

	hub := transport.NewHub(64)
	service := app.NewGameService(rooms, quizRepo, results, hub).
		WithPersistTimeout(config.TTLDuration(cfg.Results.Timeout, 5*time.Second))
	router := transport.NewRouter(
		transport.NewWSHandler(service, hub, tokens),
		rooms,
		transport.NewResultsHandler(results, quizRepo),
	)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	reapCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go reapRooms(reapCtx, service, rooms,
		config.TTLDuration(cfg.Rooms.ReapInterval, time.Minute),
		config.TTLDuration(cfg.Rooms.IdleTTL, 30*time.Minute),
	)

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// reapRooms periodically removes abandoned rooms and keeps the claims of live ones from expiring.
func reapRooms(ctx context.Context, service *app.GameService, rooms app.RoomRepository, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			service.ReapIdleRooms(ctx, now, idle)
			toucher, ok := rooms.(roomToucher)
			if !ok {
				continue
			}
			for _, room := range rooms.All() {
				if err := toucher.Touch(ctx, room.Code()); err != nil {
					log.Printf("refresh claim for room %s: %v", room.Code(), err)
				}
			}
		}
	}
}

// sampleQuizzes backs the demo loader used when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			ID:        "demo",
			Title:     "Warm-up",
			OwnerID:   "demo-host",
			Published: true,
			Questions: []domain.Question{
				{
					ID: "q1", Index: 0, Text: "What is 2 + 2?", Type: domain.SingleChoice,
					TimeLimitSeconds: 20, Points: 1000,
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
				},
				{
					ID: "q2", Index: 1, Text: "Which of these are prime?", Type: domain.MultiChoice,
					TimeLimitSeconds: 30, Points: 1000,
					Options: []domain.Option{
						{ID: "o1", Text: "2", Correct: true},
						{ID: "o2", Text: "4"},
						{ID: "o3", Text: "7", Correct: true},
					},
				},
			},
		},
	}
}
