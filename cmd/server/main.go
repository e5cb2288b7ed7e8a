package main

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

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/pkg/utils"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	sealer, err := utils.NewTokenSealer([]byte(cfg.SecretKey))
	if err != nil {
		log.Fatalf("Invalid SECRET_KEY: %v", err)
	}

	r2Service, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to set up media storage: %v", err)
	}

	httpClient := &http.Client{Timeout: 10 * time.Minute}
	graphClient := service.NewGraphClient(cfg.Instagram, cfg.Publish.PollInterval, httpClient)

	registry, err := service.NewAdapterRegistry(
		service.NewInstagramAdapter(*cfg, graphClient, r2Service),
		service.NewYoutubeAdapter(cfg.Google, httpClient, r2Service),
	)
	if err != nil {
		log.Fatalf("Failed to build adapter registry: %v", err)
	}

	postRepo := repository.NewPostRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	executionRepo := repository.NewExecutionRecordRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	scheduler := queue.NewScheduler(client, inspector, cfg.Publish.QueueName, cfg.Publish.MaxAttempts)
	retryPolicy := queue.RetryPolicy{Base: cfg.Publish.BackoffBase, Factor: cfg.Publish.BackoffFactor}

	credentialService := service.NewCredentialService(socialAccountRepo, sealer)
	postService := service.NewPostService(postRepo, postMediaRepo, executionRepo, socialAccountRepo, registry, credentialService, scheduler)
	platformService := service.NewPlatformService(registry, socialAccountRepo, credentialService)

	worker := queue.NewWorker(postRepo, postMediaRepo, executionRepo, socialAccountRepo, registry, credentialService, cfg.Publish.MaxAttempts, retryPolicy)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	platform := handlers.NewPlatformHandler(platformService, *cfg)
	app.Get("/auth/:platform", authMiddleware.AuthMiddleware(), platform.AddSocialAccount)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/:id/schedule", post.SchedulePost)
	api.Post("/posts/:id/reschedule", post.ReschedulePost)
	api.Post("/posts/:id/cancel", post.CancelPost)
	api.Post("/posts/:id/retry", post.RetryPost)
	api.Get("/posts/:id/executions", post.ListExecutions)
	api.Get("/posts/:id/remote-status", post.RemoteStatus)

	// social accounts api routes
	api.Post("/accounts/:id/validate", platform.ValidateSocialAccount)
	api.Delete("/accounts/:id", platform.DeleteSocialAccount)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, registry, credentialService)

	c := cron.New()
	if err := c.AddFunc(cfg.TokenRefreshSchedule, refreshTokenJob.RefreshTokens); err != nil {
		log.Fatalf("Invalid token refresh schedule: %v", err)
	}
	c.Start()
	defer c.Stop()

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency:    cfg.Publish.Concurrency,
		Queues:         map[string]int{cfg.Publish.QueueName: 1},
		RetryDelayFunc: retryPolicy.RetryDelayFunc(),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)

	log.Println("Starting the Asynq server...")
	if err := server.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, server)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}
