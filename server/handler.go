package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaos-io/bgremove/model"
	"github.com/chaos-io/bgremove/worker"
)

const (
	ServiceName = "u2net-background-removal"
	// MaxUploadSize 10 MiB
	MaxUploadSize = 10 * 1024 * 1024

	HeaderProcessingTime = "X-Processing-Time"
	resultDisposition    = `attachment; filename="bgremoved.png"`
	formFile             = "file"
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/jpg":  true,
}

// BackgroundRemover 由 model.Holder 实现
type BackgroundRemover interface {
	IsReady() bool
	RemoveBackground(ctx context.Context, data []byte) ([]byte, error)
}

type Handler struct {
	remover BackgroundRemover
	pool    *worker.Pool
	log     *zap.Logger
}

func NewHandler(remover BackgroundRemover, pool *worker.Pool, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		remover: remover,
		pool:    pool,
		log:     log,
	}
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Service     string `json:"service"`
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: h.remover.IsReady(),
		Service:     ServiceName,
	})
}

func (h *Handler) RemoveBackground(c *gin.Context) {
	result, elapsed, err := h.removeBackground(c)
	if err != nil {
		h.abort(c, err)
		return
	}

	h.log.Info("Background removal completed",
		zap.String("request_id", requestID(c)),
		zap.Duration("took", elapsed),
		zap.Int("result_size", len(result)))

	c.Header("Content-Disposition", resultDisposition)
	c.Header(HeaderProcessingTime, fmt.Sprintf("%.2f", elapsed.Seconds()))
	c.Data(http.StatusOK, "image/png", result)
}

func (h *Handler) removeBackground(c *gin.Context) ([]byte, time.Duration, error) {
	if !h.remover.IsReady() {
		return nil, 0, errServiceUnavailable
	}

	file, err := c.FormFile(formFile)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, 0, requestTooLarge(c.Request.ContentLength, tooLarge.Limit)
		}
		return nil, 0, NewAPIError(http.StatusUnprocessableEntity, "file field is required: %v", err)
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedContentTypes[contentType] {
		return nil, 0, invalidFileType(contentType)
	}

	f, err := file.Open()
	if err != nil {
		return nil, 0, fmt.Errorf("open upload: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, 0, fileTooLarge(len(data))
	}

	h.log.Info("Processing image",
		zap.String("request_id", requestID(c)),
		zap.String("filename", file.Filename),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)))

	// 开始执行后不再跟随请求取消
	jobCtx := context.WithoutCancel(c.Request.Context())

	var (
		result  []byte
		elapsed time.Duration
	)
	err = h.pool.Do(c.Request.Context(), func() error {
		start := time.Now()
		var err error
		result, err = h.remover.RemoveBackground(jobCtx, data)
		elapsed = time.Since(start)
		return err
	})
	if err != nil {
		return nil, elapsed, err
	}

	return result, elapsed, nil
}

func (h *Handler) abort(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *APIError
	switch {
	case errors.Is(err, model.ErrNotReady):
		// 处理过程中模型被释放
		apiErr = errServiceUnavailable
	case errors.As(err, &apiErr):
	case errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil:
		// 排队期间客户端断开，响应不会被读到
		h.log.Warn("Client disconnected before processing",
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		apiErr = processingFailed(err)
	default:
		h.log.Error("Error processing image",
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		apiErr = processingFailed(err)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{Detail: apiErr.Detail})
}
