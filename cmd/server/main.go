package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fittrack/app/internal/api"
	"fittrack/app/internal/config"
	"fittrack/app/internal/events"
	"fittrack/app/internal/logging"
	"fittrack/app/internal/metrics"
	"fittrack/app/internal/repository/mongo"
	"fittrack/app/internal/sensor"
	"fittrack/app/internal/service"
	"fittrack/app/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// @title FitTrack API
// @version 1.0
// @description Workout scheduling, step tracking and friends for the FitTrack app.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logging.Setup(logging.SetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   cfg.Log.ToStdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	defaultLoc, _ := cfg.Schedule.Location()
	log.WithFields(log.Fields{
		"address":  cfg.Server.Address,
		"timezone": defaultLoc.String(),
	}).Info("starting fittrack server")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI, mongo.ConnectOptions{
		Attempts: cfg.Database.ConnectAttempts,
		Delay:    cfg.Database.ConnectDelay,
		MaxDelay: cfg.Database.ConnectMaxDelay,
	})
	if err != nil {
		log.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.WithError(err).Error("failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		mongo.EnsureIndexes(ctx, appDB)
	}()

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	// --- Events ---
	var publisher events.Publisher = events.LogPublisher{}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalf("could not connect to AMQP: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	// --- Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		fileStorage, err = storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			log.Fatalf("failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Warn("s3.bucket_name is empty, workout video uploads disabled")
	}

	// --- Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	tokenRepo := mongo.NewMongoTokenRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	workoutRepo := mongo.NewMongoWorkoutRepository(appDB)
	friendRepo := mongo.NewMongoFriendRepository(appDB)
	stepRepo := mongo.NewMongoStepRepository(appDB)

	hub := sensor.NewHub(sensor.WithActiveGauge(metrics.ActiveStepSubscriptions))

	// --- Services ---
	services := api.Services{
		Auth:      service.NewAuthService(userRepo, tokenRepo, publisher, cfg.JWT.Secret, cfg.JWT.Expiration),
		Profile:   service.NewProfileService(userRepo),
		Dashboard: service.NewDashboardService(userRepo, stepRepo, hub, cfg.Schedule.StepGoal),
		Workout:   service.NewWorkoutService(workoutRepo, sessionRepo, fileStorage),
		Schedule:  service.NewScheduleService(sessionRepo, publisher),
		Friend:    service.NewFriendService(userRepo, friendRepo, publisher),
	}

	// --- HTTP ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(logging.GinLogger(), gin.Recovery())

	routeOpts := api.RouteOptions{DefaultLocation: defaultLoc}
	if cfg.Metrics.Enabled {
		routeOpts.MetricsPath = cfg.Metrics.Path
		routeOpts.Gatherer = registry
	}
	api.SetupRoutes(router, services, routeOpts)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infof("listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Open step streams would otherwise hold Shutdown until the timeout.
	hub.Close()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exiting")
}
