package model

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chaos-io/bgremove/preprocess"
	"github.com/chaos-io/bgremove/rembg"
)

var (
	ErrModelUnavailable  = errors.New("model unavailable")
	ErrNotReady          = errors.New("model not ready")
	ErrInvalidTransition = errors.New("invalid model state transition")
)

// State Uninitialized -> Ready -> Stopped，只能单向迁移
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// warmUpSize 预热用的纯白图边长
const warmUpSize = 100

// Holder 持有进程内唯一的模型句柄，启动时构造一次，关闭时释放
type Holder struct {
	mu        sync.Mutex // 串行化状态迁移
	state     atomic.Int32
	segmenter atomic.Pointer[rembg.Segmenter]
	log       *zap.Logger
}

func NewHolder(segmenter *rembg.Segmenter, log *zap.Logger) *Holder {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Holder{log: log}
	h.segmenter.Store(segmenter)
	return h
}

func (h *Holder) State() State {
	return State(h.state.Load())
}

func (h *Holder) IsReady() bool {
	return h.State() == StateReady
}

// Initialize 跑一次预热推理（首次调用可能触发权重下载），成功后进入 Ready
// 失败时保持 Uninitialized，调用方应终止启动
func (h *Holder) Initialize(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if st := h.State(); st != StateUninitialized {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st, StateReady)
	}

	seg := h.segmenter.Load()
	if seg == nil {
		return fmt.Errorf("%w: no segmenter configured", ErrModelUnavailable)
	}

	h.log.Info("Loading background removal model...")
	start := time.Now()
	if err := warmUp(ctx, seg); err != nil {
		h.log.Error("Failed to load background removal model", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	h.state.Store(int32(StateReady))
	h.log.Info("Background removal model loaded", zap.Duration("took", time.Since(start)))
	return nil
}

// Shutdown 释放句柄，之后不再接受请求；重复调用无副作用
func (h *Holder) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.State() == StateStopped {
		return
	}
	h.state.Store(int32(StateStopped))
	h.segmenter.Store(nil)
	h.log.Info("Background removal model released")
}

// RemoveBackground 归一化上传的图片并调用分割模型
func (h *Holder) RemoveBackground(ctx context.Context, raw []byte) ([]byte, error) {
	seg := h.segmenter.Load()
	if !h.IsReady() || seg == nil {
		return nil, ErrNotReady
	}

	n, err := preprocess.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if n.Resized {
		h.log.Info("Resized image",
			zap.Int("from_width", n.Source.X),
			zap.Int("from_height", n.Source.Y),
			zap.Int("to_width", n.Image.Bounds().Dx()),
			zap.Int("to_height", n.Image.Bounds().Dy()))
	}
	if n.Flattened {
		h.log.Debug("Flattened transparent image onto white", zap.String("format", n.Format))
	}

	return seg.Segment(ctx, n.Image)
}

// Ping 重复一次预热推理检查模型后端是否存活，不改变状态
func (h *Holder) Ping(ctx context.Context) error {
	seg := h.segmenter.Load()
	if !h.IsReady() || seg == nil {
		return ErrNotReady
	}
	return warmUp(ctx, seg)
}

func warmUp(ctx context.Context, seg *rembg.Segmenter) error {
	img := image.NewRGBA(image.Rect(0, 0, warmUpSize, warmUpSize))
	for y := 0; y < warmUpSize; y++ {
		for x := 0; x < warmUpSize; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	_, err := seg.Segment(ctx, img)
	return err
}
