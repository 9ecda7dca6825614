package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kevinliu948/storeit-backend/internal/auth/middleware"
	"github.com/kevinliu948/storeit-backend/internal/conf"
	fileservice "github.com/kevinliu948/storeit-backend/internal/file/service"
	"github.com/kevinliu948/storeit-backend/internal/pkg/logger"
	userservice "github.com/kevinliu948/storeit-backend/internal/user/service"
)

type HTTPServer struct {
	server *http.Server
	logger *zap.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	userService *userservice.UserService,
	fileService *fileservice.FileService,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log.Logger))
	router.Use(middleware.CORS())

	// Multipart parsing buffers one chunk at a time; the rest spills to disk.
	router.MaxMultipartMemory = 32 << 20

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API routes, session required
	api := router.Group("/api/v1")
	api.Use(middleware.SessionAuth(middleware.SessionConfig{
		JWTSecret:  config.Auth.JWTSecret,
		JWTIssuer:  config.Auth.JWTIssuer,
		CookieName: config.Auth.SessionCookie,
		SignInURL:  config.Auth.SignInURL,
	}, log))

	userService.RegisterRoutes(api)
	fileService.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: log.Logger,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
