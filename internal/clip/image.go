package clip

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"go.klb.dev/lanclip/internal/message"
)

// System clipboards hand out images as PNG; the wire carries raw RGBA8.

func decodePNG(b []byte) (message.Image, error) {
	src, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return message.Image{}, fmt.Errorf("decode png: %w", err)
	}
	r := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return message.Image{
		Width:  uint32(r.Dx()),
		Height: uint32(r.Dy()),
		Pixels: dst.Pix,
	}, nil
}

func encodePNG(img message.Image) ([]byte, error) {
	w, h := int(img.Width), int(img.Height)
	if want := w * h * 4; len(img.Pixels) != want {
		return nil, fmt.Errorf("%w: %dx%d image needs %d pixel bytes, got %d",
			ErrUnsupported, w, h, want, len(img.Pixels))
	}
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupported)
	}
	src := &image.NRGBA{
		Pix:    img.Pixels,
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
