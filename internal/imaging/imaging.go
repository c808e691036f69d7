// Package imaging prepares catalog images for upload: it validates the
// format, downscales oversized pictures, and re-encodes so the multipart
// attachment stays small regardless of what file the admin picked.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path"
	"strings"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height for uploaded images.
const MaxDimension = 1600

// JPEGQuality is the compression quality for re-encoded JPEG output.
const JPEGQuality = 90

// Upload is a processed attachment ready for the multipart request.
type Upload struct {
	Data     []byte
	MIME     string
	Filename string
}

// PrepareUpload reads raw image data, sniffs the format from the bytes,
// rejects anything but JPEG and PNG, downscales when a dimension exceeds
// MaxDimension, and re-encodes. PNG input stays PNG (artwork scans often
// need lossless edges); everything else becomes JPEG. The returned filename
// keeps the original base name with a corrected extension.
func PrepareUpload(r io.Reader, name string) (*Upload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	detected := http.DetectContentType(data)
	if detected != "image/jpeg" && detected != "image/png" {
		return nil, fmt.Errorf("unsupported image format: %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	scaled := downscale(img, MaxDimension)

	// An already-small JPEG is passed through untouched to avoid a
	// generation loss for nothing.
	if detected == "image/jpeg" && scaled == img {
		return &Upload{Data: data, MIME: detected, Filename: withExt(name, ".jpg")}, nil
	}

	var buf bytes.Buffer
	if detected == "image/png" {
		if err := png.Encode(&buf, scaled); err != nil {
			return nil, fmt.Errorf("encoding PNG: %w", err)
		}
		return &Upload{Data: buf.Bytes(), MIME: "image/png", Filename: withExt(name, ".png")}, nil
	}

	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return &Upload{Data: buf.Bytes(), MIME: "image/jpeg", Filename: withExt(name, ".jpg")}, nil
}

// downscale resizes so neither dimension exceeds maxDim, preserving aspect
// ratio with Catmull-Rom interpolation. Returns the input unchanged when
// already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func withExt(name, ext string) string {
	base := path.Base(name)
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return strings.TrimSuffix(base, path.Ext(base)) + ext
}

func init() {
	// Register decoders (jpeg is registered by default, but be explicit).
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
