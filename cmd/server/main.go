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
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/browser"
	"github.com/maheshrc27/crosspost/internal/credentials"
	"github.com/maheshrc27/crosspost/internal/integration"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/media"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/registry"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/resilience"
	"github.com/maheshrc27/crosspost/internal/scheduling"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/robfig/cron"
)

type stores struct {
	content     repository.ContentRepository
	queue       repository.QueueRepository
	results     repository.ResultRepository
	connections repository.ConnectionRepository
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	var db *sql.DB
	var st stores
	if cfg.PostgresURI != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("Database is unreachable: %v", err)
		}
		if err := repository.EnsureSchema(db); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		st = stores{
			content:     repository.NewContentRepository(db),
			queue:       repository.NewQueueRepository(db),
			results:     repository.NewResultRepository(db),
			connections: repository.NewConnectionRepository(db),
		}
	} else {
		log.Println("Warning: POSTGRES_URI not set, queue and results are kept in memory")
		mem := repository.NewMemoryStore()
		st = stores{
			content:     mem.Content(),
			queue:       mem.Queue(),
			results:     mem.Results(),
			connections: mem.Connections(),
		}
	}

	httpClient := &http.Client{Timeout: 2 * time.Minute}

	var objects media.ObjectGetter
	if cfg.R2.BucketName != "" {
		bucket, err := media.NewR2Bucket(ctx, media.R2Settings{
			AccountID:  cfg.R2.AccountID,
			AccessKey:  cfg.R2.AccessKey,
			SecretKey:  cfg.R2.SecretKey,
			BucketName: cfg.R2.BucketName,
		})
		if err != nil {
			log.Fatalf("Failed to configure R2: %v", err)
		}
		objects = bucket
	}

	chrome := browser.NewChromeDriver(browser.ChromeOptions{
		Headless:  cfg.Browser.Headless,
		UserAgent: cfg.Browser.UserAgent,
	})
	defer chrome.Close()

	reg := registry.New(integration.Dependencies{
		HTTPClient: httpClient,
		Media:      media.NewStore(httpClient, objects),
		Browser:    browser.NewPool(chrome, cfg.Browser.MaxSessions),
	})
	defer reg.Close()

	platforms, err := config.LoadPlatforms(cfg.PlatformsFile)
	if err != nil {
		log.Fatalf("Failed to load platform configs: %v", err)
	}
	constructors := integration.DefaultConstructors()
	for _, pc := range config.WithMediaBaseURL(platforms, cfg.R2.PublicURL) {
		constructor, ok := constructors[pc.Platform]
		if !ok {
			log.Printf("Warning: no integration for platform %s, skipping", pc.Platform)
			continue
		}
		if err := reg.Register(pc.Platform, constructor, pc); err != nil {
			log.Fatalf("Failed to register %s: %v", pc.Platform, err)
		}
	}

	breakers := resilience.NewBreakerSet(cfg.CircuitFailureThreshold, cfg.CircuitRecoveryTimeout)
	executor := resilience.NewExecutor(breakers, resilience.DefaultStrategies(), resilience.NewLimiters())
	scheduler := scheduling.New(service.RegistryPreferences(reg), cfg.Location())
	credentialProvider := credentials.NewProvider(st.connections, cfg.CredentialKey())

	var (
		redisConn   asynq.RedisClientOpt
		asynqClient *asynq.Client
		notifier    service.DrainNotifier
	)
	if cfg.RedisURI != "" {
		redisConn = asynq.RedisClientOpt{Addr: cfg.RedisURI}
		asynqClient = asynq.NewClient(redisConn)
		defer asynqClient.Close()
		notifier = queue.NewTrigger(asynqClient)
	}

	postingService := service.NewPostingService(
		st.content, st.queue, st.results,
		reg, credentialProvider, executor, scheduler,
		service.PostingOptions{Concurrency: cfg.WorkerConcurrency, Notifier: notifier})

	worker := queue.NewWorker(postingService, st.queue, cfg.DrainInterval, cfg.DrainBatchSize)
	worker.Start(ctx)

	if asynqClient != nil {
		go func() {
			server := asynq.NewServer(redisConn, asynq.Config{
				Concurrency: 2,
			})

			mux := asynq.NewServeMux()
			mux.HandleFunc(queue.TaskTypeDrainQueue, worker.HandleDrainTask)

			log.Println("Starting the Asynq server...")
			if err := server.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	}

	// cron jobs
	c := cron.New()
	if err := scheduleJobs(c, cfg, reg, postingService); err != nil {
		log.Fatalf("Could not schedule jobs: %v", err)
	}
	c.Start()
	defer c.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    10 * 1024 * 1024,
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api.Register(app, api.Handlers{
		Posts:       handlers.NewPostHandler(postingService),
		Queue:       handlers.NewQueueHandler(postingService),
		Schedule:    handlers.NewScheduleHandler(postingService),
		Platforms:   handlers.NewPlatformHandler(reg, breakers),
		Connections: handlers.NewConnectionHandler(credentialProvider, reg),
	}, authMiddleware.AuthMiddleware())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, worker, db)
}

func scheduleJobs(c *cron.Cron, cfg *config.Config, reg *registry.Registry, retrier job.RetryFailer) error {
	keepalive := job.NewSessionKeepaliveJob(reg, 30*time.Second)
	if err := c.AddFunc(cfg.KeepaliveSchedule, keepalive.Run); err != nil {
		return fmt.Errorf("invalid KEEPALIVE_SCHEDULE: %w", err)
	}
	if cfg.RetrySweepMaxAge > 0 {
		sweep := job.NewRetrySweepJob(retrier, cfg.RetrySweepMaxAge)
		if err := c.AddFunc(cfg.RetrySweepSchedule, sweep.Run); err != nil {
			return fmt.Errorf("invalid RETRY_SWEEP_SCHEDULE: %w", err)
		}
	}
	return nil
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, worker *queue.Worker, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	worker.Stop()

	closeDB(db)
	log.Println("Server shutdown complete.")
}
