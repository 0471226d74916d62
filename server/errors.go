package server

import (
	"fmt"
	"net/http"
)

// APIError 带 HTTP 状态码的错误，handler 原样透传其状态码
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
}

func NewAPIError(status int, format string, args ...any) *APIError {
	return &APIError{Status: status, Detail: fmt.Sprintf(format, args...)}
}

// ErrorResponse 所有错误响应的 JSON 结构
type ErrorResponse struct {
	Detail string `json:"detail"`
}

var errServiceUnavailable = &APIError{
	Status: http.StatusServiceUnavailable,
	Detail: "Background removal service is not available. Model not loaded.",
}

func invalidFileType(contentType string) *APIError {
	return NewAPIError(http.StatusBadRequest, "Invalid file type. Only JPG and PNG are supported. Got: %s", contentType)
}

func fileTooLarge(size int) *APIError {
	return NewAPIError(http.StatusBadRequest, "File too large. Maximum size is 10MB. Got: %d bytes", size)
}

// requestTooLarge 请求体超过上限，实际大小只能取 Content-Length
func requestTooLarge(contentLength, limit int64) *APIError {
	if contentLength > limit {
		return NewAPIError(http.StatusBadRequest, "File too large. Maximum size is 10MB. Got: %d bytes", contentLength)
	}
	return NewAPIError(http.StatusBadRequest, "File too large. Maximum size is 10MB. Got: more than %d bytes", limit)
}

func processingFailed(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, "Failed to process image: %v", err)
}
