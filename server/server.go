package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaos-io/bgremove/config"
)

const (
	// multipartMemory 超过部分落盘
	multipartMemory = 32 << 20
	// maxRequestBody 上传文件上限加上 multipart 头部的余量
	maxRequestBody = MaxUploadSize + 1<<20
)

type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

func New(cfg config.ServerConfig, h *Handler, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           NewRouter(h, cfg.CORSAllowOrigins, log),
			ReadHeaderTimeout: 10 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1 MB
		},
		log: log,
	}

	log.Info("Server created",
		zap.String("address", cfg.Addr()),
		zap.Int("worker_pool_size", cfg.WorkerPoolSize))

	return server
}

func NewRouter(h *Handler, allowOrigins []string, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = multipartMemory
	router.Use(gin.Recovery(), RequestID(), AccessLog(log), corsMiddleware(allowOrigins))

	router.GET("/health", h.HealthCheck)
	router.POST("/remove-bg", LimitBody(maxRequestBody), h.RemoveBackground)

	return router
}

func corsMiddleware(allowOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", HeaderRequestID},
		ExposeHeaders: []string{HeaderProcessingTime, HeaderRequestID, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// Run 阻塞直到服务关闭；正常 Shutdown 时返回 nil
func (s *Server) Run() error {
	s.log.Info("Server is running", zap.String("address", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
