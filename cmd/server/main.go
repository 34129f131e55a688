package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
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
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "postpipe/configs"
	"postpipe/internal/api/handlers"
	"postpipe/internal/api/middleware"
	"postpipe/internal/dispatch"
	"postpipe/internal/models"
	"postpipe/internal/platform"
	"postpipe/internal/queue"
	"postpipe/internal/repository"
	"postpipe/internal/service"
	"postpipe/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer redisClient.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

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
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Trigger-Secret",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	schedulerRepo := repository.NewSchedulerRepository(db)

	adapters := platform.Registry{
		models.PlatformX:         platform.NewXAdapter(cfg.X),
		models.PlatformNote:      platform.NewNoteAdapter(cfg.Note),
		models.PlatformWordpress: platform.NewWordpressAdapter(cfg.Wordpress),
	}

	sessionStore := session.NewStore(redisClient, cfg.SessionTTL)
	retentionService := service.NewRetentionService(postRepo, cfg.MaxStoredPosts)
	intakeService := service.NewIntakeService(*cfg, postRepo, sessionStore, retentionService)
	postService := service.NewPostService(postRepo, analyticsRepo, adapters)
	bulkService := service.NewBulkService(postRepo)

	policy := dispatch.DefaultRetryPolicy()
	policy.InitialDelay = cfg.RetryBaseDelay
	dispatcher := dispatch.NewDispatcher(
		postRepo, analyticsRepo, adapters, policy,
		queue.NewClient(asynqClient), cfg.DispatchBatchSize, cfg.InterPostDelay)

	worker := dispatch.NewWorker(dispatcher, schedulerRepo)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go worker.Loop(workerCtx)

	triggerMiddleware := middleware.NewTriggerMiddleware(*cfg)

	api := app.Group("/api")

	intake := handlers.NewIntakeHandler(intakeService)
	api.Post("/intake", intake.Submit)
	api.Post("/intake/x", intake.SubmitX)
	api.Post("/intake/note", intake.SubmitNote)
	api.Post("/intake/wordpress", intake.SubmitWordpress)
	api.Post("/intake/chunked", intake.SubmitChunk)

	post := handlers.NewPostHandler(postService, bulkService)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.PostInfo)
	api.Post("/posts/remove", post.RemovePost)
	api.Post("/posts/unschedule", post.UnschedulePost)
	api.Post("/posts/publish", post.PublishPost)
	api.Post("/posts/bulk-schedule", post.BulkSchedule)

	dispatchHandler := handlers.NewDispatchHandler(worker)
	api.Post("/dispatch/trigger", triggerMiddleware.TriggerAuth(), dispatchHandler.Trigger)

	// Periodic dispatch tick; the worker skips it when the persisted
	// scheduler flag is off.
	c := cron.New()
	c.AddFunc("@every 0h1m0s", worker.Tick)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		queueWorker := queue.NewWorker(dispatcher)
		mux.HandleFunc(queue.TaskTypeDispatchPost, queueWorker.HandleDispatchPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
