package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kevinliu948/storeit-backend/internal/conf"
	"github.com/kevinliu948/storeit-backend/internal/data"
	filebiz "github.com/kevinliu948/storeit-backend/internal/file/biz"
	filedata "github.com/kevinliu948/storeit-backend/internal/file/data"
	fileservice "github.com/kevinliu948/storeit-backend/internal/file/service"
	"github.com/kevinliu948/storeit-backend/internal/notify"
	"github.com/kevinliu948/storeit-backend/internal/pkg/logger"
	"github.com/kevinliu948/storeit-backend/internal/server"
	userbiz "github.com/kevinliu948/storeit-backend/internal/user/biz"
	userdata "github.com/kevinliu948/storeit-backend/internal/user/data"
	userservice "github.com/kevinliu948/storeit-backend/internal/user/service"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	logConfig := &logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize global logger
	if err := logger.InitGlobal(logConfig); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Initialize repositories
	userRepo := userdata.NewUserRepo(d.DB)
	fileRepo := filedata.NewFileRepo(d.DB)
	chunkRepo := filedata.NewChunkRepo(d.DB)

	publicEndpoint := config.MinIO.PublicEndpoint
	if publicEndpoint == "" {
		publicEndpoint = config.MinIO.Endpoint
	}
	chunkStore := filedata.NewMinIOChunkStore(d.MinIOClient, config.MinIO.Bucket, publicEndpoint, config.MinIO.UseSSL)
	revalidator := filedata.NewRedisRevalidator(d.RedisClient)

	var notifier filebiz.Notifier = notify.NoopNotifier{}
	if config.SMTP.Enabled {
		notifier = notify.NewEmailNotifier(config.SMTP)
	}

	// Initialize use cases
	userUseCase := userbiz.NewUserUseCase(userRepo)
	fileUseCase := filebiz.NewFileUseCase(
		fileRepo,
		chunkRepo,
		chunkStore,
		revalidator,
		notifier,
		config.Quota.Capacity,
		log,
	)

	// Initialize services
	userService := userservice.NewUserService(userUseCase, log.Logger)
	fileService := fileservice.NewFileService(fileUseCase, userUseCase, config.Server.MaxUploadSize, log.Logger)

	// Initialize server
	httpServer := server.NewHTTPServer(config, log, userService, fileService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
