package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
)

// MaxDimension 模型输入最长边上限
const MaxDimension = 2048

var ErrDecode = errors.New("cannot decode image")

// Normalized 是送入分割模型前的图像
type Normalized struct {
	// Image 不透明 RGB，所有像素 alpha = 255，Bounds 从 (0,0) 开始
	Image *image.RGBA
	// Format 解码器识别出的源格式，如 "jpeg"、"png"
	Format string
	// Source 源图尺寸
	Source image.Point
	// Resized 是否做过缩放
	Resized bool
	// Flattened 是否把透明通道合成到了白底上
	Flattened bool
}

// Normalize 把任意上传的图片变成
//
//	最长边 <= MaxDimension（Lanczos3 等比缩放）
//	RGB，无透明通道（带 alpha 的图按 alpha 合成到白底）
func Normalize(raw []byte) (*Normalized, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w (detected %s): %v", ErrDecode, mimetype.Detect(raw).String(), err)
	}

	b := img.Bounds()
	n := &Normalized{
		Format: format,
		Source: image.Pt(b.Dx(), b.Dy()),
	}

	// 1. 去 alpha
	// 必须先合成白底再缩放：Lanczos 过冲会让预乘后的颜色分量大于 alpha，
	// 之后再做 Over 合成会溢出成接近黑色的像素
	n.Flattened = !isOpaque(img)
	flat := flattenOnWhite(img)

	// 2. 缩放
	n.Image = toOpaqueRGBA(resizeWithinMax(flat, MaxDimension))
	n.Resized = n.Image.Bounds().Size() != n.Source

	return n, nil
}
