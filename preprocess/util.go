package preprocess

import (
	"image"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// resizeWithinMax 最长边超过 maxSize 时等比缩放到正好 maxSize，否则原样返回
func resizeWithinMax(img image.Image, maxSize int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	if max(w, h) <= maxSize {
		return img
	}

	newW, newH := scaledSize(w, h, maxSize)
	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}

// scaledSize 长边取 maxSize，短边按比例四舍五入，至少 1 像素
func scaledSize(w, h, maxSize int) (int, int) {
	if w >= h {
		return maxSize, scaleSide(h, w, maxSize)
	}
	return scaleSide(w, h, maxSize), maxSize
}

func scaleSide(short, long, maxSize int) int {
	v := int(math.Round(float64(short) * float64(maxSize) / float64(long)))
	return max(v, 1)
}

// isOpaque 图像是否确定没有透明像素
// 不实现 Opaque() 的自定义类型按“可能有透明”处理，走白底合成
func isOpaque(img image.Image) bool {
	o, ok := img.(interface{ Opaque() bool })
	return ok && o.Opaque()
}

// flattenOnWhite 输出不透明 RGBA
// 不透明的图直接做色彩空间转换（灰度、YCbCr、CMYK、调色板 -> RGB），
// 带透明的图以 alpha 为权重合成到纯白背景上。
func flattenOnWhite(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if isOpaque(img) {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// toOpaqueRGBA 转为 Bounds 从 (0,0) 开始的 RGBA，并把 alpha 固定为 255
// 输入必须是不透明图像，颜色分量因此不会超过 alpha
func toOpaqueRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) && rgba.Opaque() {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	return dst
}

// ToNRGBA 转为 NRGBA，没有透明通道的源图得到全不透明的 alpha
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
