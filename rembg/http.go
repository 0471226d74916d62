package rembg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"time"

	nhttp "github.com/chaos-io/bgremove/util/http"
)

// HTTPRemover 调用 rembg 兼容的推理服务（`rembg s`）
//
//	curl -X POST "$MODEL_URL" -F "file=@input.png" -F "model=u2net" -o output.png
type HTTPRemover struct {
	url   string
	model string
	cli   nhttp.IClient
}

func NewHTTPRemover(url, model string, timeout time.Duration) *HTTPRemover {
	return &HTTPRemover{
		url:   url,
		model: model,
		cli:   nhttp.NewHTTPClient(nhttp.WithTimeout(timeout)),
	}
}

func (h *HTTPRemover) Remove(ctx context.Context, in []byte) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="input.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(in); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if h.model != "" {
		_ = writer.WriteField("model", h.model)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	var out []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: h.url,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   &out,
	}
	if err := h.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		return nil, fmt.Errorf("model server: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("model server returned an empty body")
	}

	return out, nil
}
