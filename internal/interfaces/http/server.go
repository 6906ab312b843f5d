// Package http provides the HTTP server adapter for the application layer.
// It translates requests to application service calls and domain errors to
// status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/webgradeuz/fuelbonus/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	checkService service.CheckService,
	customerService service.CustomerService,
	stationService service.StationService,
	exportService service.ExportService,
	notificationService service.NotificationService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config: config,
		router: gin.New(),
		handlers: NewHandlers(
			checkService, customerService, stationService,
			exportService, notificationService, logger,
		),
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		checks := api.Group("/checks")
		{
			checks.POST("", s.handlers.IssueCheck)
			checks.GET("", s.handlers.ListChecks)
			checks.POST("/use", s.handlers.UseCheck)
			checks.GET("/code/:code", s.handlers.GetCheckByCode)
			checks.GET("/operator/:id/stats", s.handlers.OperatorStats)
			checks.GET("/export/excel", s.handlers.ExportChecks)
			checks.GET("/:id", s.handlers.GetCheck)
			checks.DELETE("/:id", s.handlers.DeleteCheck)
			checks.POST("/:id/cancel", s.handlers.CancelCheck)
			checks.POST("/:id/reactivate", s.handlers.ReactivateCheck)
			checks.POST("/:id/print", s.handlers.PrintCheck)
			checks.GET("/:id/qr", s.handlers.GetCheckQR)
			checks.GET("/:id/qr/image", s.handlers.GetCheckQRImage)
		}

		customers := api.Group("/customers")
		{
			customers.POST("", s.handlers.CreateCustomer)
			customers.GET("", s.handlers.ListCustomers)
			customers.GET("/ranking", s.handlers.CustomerRanking)
			customers.GET("/top", s.handlers.CustomerTop)
			customers.GET("/export/excel", s.handlers.ExportCustomers)
			customers.GET("/station/:id", s.handlers.StationCustomers)
			customers.GET("/:id", s.handlers.GetCustomer)
			customers.PUT("/:id", s.handlers.UpdateCustomer)
			customers.DELETE("/:id", s.handlers.DeleteCustomer)
			customers.GET("/:id/rank", s.handlers.CustomerRank)
		}

		stations := api.Group("/stations")
		{
			stations.POST("", s.handlers.CreateStation)
			stations.GET("", s.handlers.ListStations)
			stations.GET("/:id", s.handlers.GetStation)
		}

		api.POST("/broadcast", s.handlers.Broadcast)
	}
}

// Start runs the server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
