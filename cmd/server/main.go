package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/api"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/oauth"
	"github.com/maheshrc27/postflow/internal/publisher"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/robfig/cron"
)

func main() {
	logger.Init()
	log := logger.L()

	if err := godotenv.Load(); err != nil {
		log.Warnf("Failed to load environment variables: %v", err)
	}

	cfg := config.LoadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)

	// backstop for calls whose context has no deadline
	httpClient := &http.Client{Timeout: cfg.Sweep.PlatformCallTimeout + 5*time.Second}

	var (
		registry       *publisher.Registry
		refreshers     map[models.Platform]oauth.Refresher
		slowestPublish time.Duration
	)
	if cfg.Sweep.PublisherMode == "simulated" {
		log.Warnf("Publishing in simulated mode, fail rate %.2f", cfg.Sweep.SimulatedFailRate)
		registry = publisher.NewSimulatedRegistry(cfg.Sweep.SimulatedFailRate)
		refreshers = oauth.NewSimulatedRefreshers(nil)
	} else {
		registry = publisher.NewLiveRegistry(cfg.Platforms, httpClient)
		refreshers = oauth.NewRefreshers(cfg.Platforms, httpClient)
		slowestPublish = cfg.Platforms.YoutubeUploadTimeout
	}

	tokenService := service.NewTokenService(cfg.SecretKey, socialAccountRepo, refreshers, nil)
	sweeper := job.NewSweepJob(postRepo, socialAccountRepo, tokenService, registry, cfg.Sweep, nil)
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, tokenService, cfg.Sweep.PlatformCallTimeout, nil)

	r2Service, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure media storage: %v", err)
	}
	postService := service.NewPostService(db, postRepo, mediaAssetRepo, r2Service, validator.New())
	platformService := service.NewPlatformService(socialAccountRepo)

	app := api.NewApp(api.Router{
		Post:           handlers.NewPostHandler(postService),
		Platform:       handlers.NewPlatformHandler(platformService),
		Sweep:          handlers.NewSweepHandler(sweeper),
		Auth:           middleware.NewAuthMiddleware(cfg.SecretKey, cfg.CookieName),
		ServiceRoleKey: cfg.ServiceRoleKey,
		FrontendURL:    cfg.FrontendURL,
	})

	// cron jobs
	c := cron.New()

	var worker *asynq.Server
	if cfg.RedisURI != "" {
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		client := asynq.NewClient(redisConn)
		defer client.Close()

		interval, err := queue.SweepInterval(cfg.Sweep.Schedule, time.Now())
		if err != nil {
			log.Fatalf("Invalid sweep schedule %q: %v", cfg.Sweep.Schedule, err)
		}
		timeout := queue.SweepTimeout(cfg.Sweep, slowestPublish)
		log.Infof("Sweep tasks every %s, timeout %s", interval, timeout)
		addJob(c, cfg.Sweep.Schedule, func() {
			if err := queue.EnqueueSweep(client, interval, timeout); err != nil {
				log.Errorf("Failed to enqueue sweep: %v", err)
			}
		})

		worker = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 1,
			Logger:      log,
		})
		mux := asynq.NewServeMux()
		queue.NewQueue(sweeper).Register(mux)

		go func() {
			log.Info("Starting the Asynq server...")
			if err := worker.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	} else {
		log.Info("REDIS_URI not set, sweeping inline")
		addJob(c, cfg.Sweep.Schedule, func() { sweeper.RunScheduled(ctx) })
	}

	addJob(c, cfg.Sweep.TokenRefreshEvery, func() { refreshTokenJob.RefreshTokens(ctx) })
	c.Start()
	defer c.Stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Infof("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, worker, sweeper, cancel)
}

func addJob(c *cron.Cron, spec string, fn func()) {
	if err := c.AddFunc(spec, fn); err != nil {
		logger.L().Fatalf("Invalid cron schedule %q: %v", spec, err)
	}
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, worker *asynq.Server, sweeper *job.SweepJob, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		logger.L().Errorf("Failed to shut down server: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
	cancel()
	// an inline sweep still records outcomes it already has
	sweeper.Drain()

	logger.L().Info("Server shutdown complete.")
}
