package rembg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/chaos-io/bgremove/preprocess"
)

var (
	ErrInference          = errors.New("inference failed")
	ErrBackendUnavailable = errors.New("model backend unavailable")
)

// Remover 外部抠图模型：输入 PNG，输出背景透明的 PNG
type Remover interface {
	Remove(ctx context.Context, in []byte) ([]byte, error)
}

type RemoverFunc func(ctx context.Context, in []byte) ([]byte, error)

func (f RemoverFunc) Remove(ctx context.Context, in []byte) ([]byte, error) {
	return f(ctx, in)
}

// Segmenter 包装 Remover，负责模型边界两侧的编码归一化
type Segmenter struct {
	remover Remover
}

func NewSegmenter(remover Remover) *Segmenter {
	return &Segmenter{remover: remover}
}

// Segment 调用一次模型，不重试
// 返回的 PNG 总是 RGBA（color type 6），模型输出没有 alpha 时补全不透明通道
func (s *Segmenter) Segment(ctx context.Context, img image.Image) ([]byte, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return nil, fmt.Errorf("%w: encode model input: %v", ErrInference, err)
	}

	out, err := s.remover.Remove(ctx, in.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("%w: decode model output: %v", ErrInference, err)
	}

	var result bytes.Buffer
	if err := EncodeRGBA(&result, preprocess.ToNRGBA(decoded)); err != nil {
		return nil, fmt.Errorf("%w: encode result: %v", ErrInference, err)
	}
	return result.Bytes(), nil
}
