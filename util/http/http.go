package http

import (
	"context"
	"time"
)

type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 描述一次出站请求
//
// Body 支持 nil、io.Reader、[]byte，其余类型按 JSON 序列化。
// Response 为 *[]byte 时写入原始响应体，为其他指针时按 JSON 反序列化，nil 时丢弃。
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	Timeout time.Duration
}
