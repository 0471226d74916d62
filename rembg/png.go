package rembg

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"io"
)

const (
	pngHeader     = "\x89PNG\r\n\x1a\n"
	colorTypeRGBA = 6
)

// EncodeRGBA 以 8-bit RGBA 写出 PNG
//
// image/png 会把全不透明的 NRGBA 降级为 RGB（color type 2），
// 这种情况下这里自己写 IHDR/IDAT/IEND，保证输出一定带 alpha 通道。
func EncodeRGBA(w io.Writer, img *image.NRGBA) error {
	if !img.Opaque() {
		return png.Encode(w, img)
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return errors.New("png: invalid image size " + b.String())
	}

	if _, err := io.WriteString(w, pngHeader); err != nil {
		return err
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = 8 // bit depth
	ihdr[9] = colorTypeRGBA
	// 10: compression, 11: filter, 12: interlace 均为 0
	if err := writeChunk(w, "IHDR", ihdr); err != nil {
		return err
	}

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	rowLen := 4 * width
	for y := 0; y < height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		// filter type 0 (None)
		if _, err := zw.Write([]byte{0}); err != nil {
			return err
		}
		if _, err := zw.Write(img.Pix[off : off+rowLen]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := writeChunk(w, "IDAT", idat.Bytes()); err != nil {
		return err
	}

	return writeChunk(w, "IEND", nil)
}

func writeChunk(w io.Writer, name string, data []byte) error {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(data)))
	copy(hdr[4:], name)

	crc := crc32.NewIEEE()
	_, _ = crc.Write(hdr[4:])
	_, _ = crc.Write(data)

	var tail [4]byte
	binary.BigEndian.PutUint32(tail[:], crc.Sum32())

	for _, p := range [][]byte{hdr[:], data, tail[:]} {
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}
