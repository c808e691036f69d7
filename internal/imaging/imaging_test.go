package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func testPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestPrepareUploadSmallJPEGPassthrough(t *testing.T) {
	data := testJPEG(100, 100)
	up, err := PrepareUpload(bytes.NewReader(data), "painting.jpeg")
	if err != nil {
		t.Fatalf("PrepareUpload: %v", err)
	}
	if up.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", up.MIME)
	}
	if !bytes.Equal(up.Data, data) {
		t.Error("small JPEG should pass through unchanged")
	}
	if up.Filename != "painting.jpg" {
		t.Errorf("expected painting.jpg, got %s", up.Filename)
	}
}

func TestPrepareUploadPNGStaysPNG(t *testing.T) {
	up, err := PrepareUpload(bytes.NewReader(testPNG(100, 100)), "scan.png")
	if err != nil {
		t.Fatalf("PrepareUpload PNG: %v", err)
	}
	if up.MIME != "image/png" {
		t.Errorf("expected image/png, got %s", up.MIME)
	}
}

func TestPrepareUploadDownscale(t *testing.T) {
	up, err := PrepareUpload(bytes.NewReader(testJPEG(3200, 3200)), "big.jpg")
	if err != nil {
		t.Fatalf("PrepareUpload large image: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		t.Errorf("expected max %dx%d, got %dx%d", MaxDimension, MaxDimension, bounds.Dx(), bounds.Dy())
	}
}

func TestPrepareUploadKeepsAspectRatio(t *testing.T) {
	up, err := PrepareUpload(bytes.NewReader(testJPEG(3200, 1600)), "wide.jpg")
	if err != nil {
		t.Fatalf("PrepareUpload: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != MaxDimension || bounds.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, bounds.Dx(), bounds.Dy())
	}
}

func TestPrepareUploadInvalidFormat(t *testing.T) {
	if _, err := PrepareUpload(bytes.NewReader([]byte("not an image")), "x.txt"); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestPrepareUploadGIFRejected(t *testing.T) {
	if _, err := PrepareUpload(bytes.NewReader([]byte("GIF89a...")), "x.gif"); err == nil {
		t.Error("expected error for GIF")
	}
}

func TestPrepareUploadEmptyName(t *testing.T) {
	up, err := PrepareUpload(bytes.NewReader(testJPEG(10, 10)), "")
	if err != nil {
		t.Fatalf("PrepareUpload: %v", err)
	}
	if up.Filename != "image.jpg" {
		t.Errorf("expected fallback filename image.jpg, got %s", up.Filename)
	}
}
