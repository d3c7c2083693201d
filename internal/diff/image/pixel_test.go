package image

import (
	"errors"
	"testing"

	"layout-snapshot/internal/buffer"

	"github.com/google/go-cmp/cmp"
)

var (
	white = [4]uint8{255, 255, 255, 255}
	black = [4]uint8{0, 0, 0, 255}
)

func createTestImage(width, height int, c [4]uint8) *buffer.Buffer {
	img := buffer.New(uint32(width), uint32(height))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], c[:])
	}
	return img
}

func setPixel(img *buffer.Buffer, x, y int, c [4]uint8) {
	pos := (y*int(img.Width) + x) * 4
	copy(img.Pix[pos:pos+4], c[:])
}

func pixelAt(img *buffer.Buffer, x, y int) [4]uint8 {
	pos := (y*int(img.Width) + x) * 4
	return [4]uint8{img.Pix[pos], img.Pix[pos+1], img.Pix[pos+2], img.Pix[pos+3]}
}

// createEdgeImage draws a black half and a white half joined by a one pixel
// wide gray column, like an anti-aliased vertical edge.
func createEdgeImage(gray uint8) *buffer.Buffer {
	img := createTestImage(5, 5, white)
	for y := 0; y < 5; y++ {
		setPixel(img, 0, y, black)
		setPixel(img, 1, y, black)
		setPixel(img, 2, y, [4]uint8{gray, gray, gray, 255})
	}
	return img
}

func TestPixelDiff_Calculate(t *testing.T) {
	pd := NewPixelDiff(DefaultOptions())

	t.Run("NoDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, white)
		img2 := createTestImage(100, 100, white)

		result, err := pd.Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.DiffPixelCount != 0 {
			t.Errorf("Expected DiffPixelCount to be 0, got %d", result.DiffPixelCount)
		}
		if diff := cmp.Diff(white, pixelAt(result.Image, 50, 50)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("CompleteDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, white)
		img2 := createTestImage(100, 100, black)

		result, err := pd.Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.DiffPixelCount != 10000 {
			t.Errorf("Expected DiffPixelCount to be 10000, got %d", result.DiffPixelCount)
		}
		if result.DiffAmount != 1.0 {
			t.Errorf("Expected DiffAmount to be 1.0, got %f", result.DiffAmount)
		}
		if diff := cmp.Diff([4]uint8{255, 0, 0, 255}, pixelAt(result.Image, 0, 0)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("PartialDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, white)
		img2 := createTestImage(100, 100, white)

		for y := 0; y < 50; y++ {
			for x := 0; x < 100; x++ {
				setPixel(img2, x, y, black)
			}
		}

		result, err := pd.Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.DiffPixelCount != 5000 {
			t.Errorf("Expected DiffPixelCount to be 5000, got %d", result.DiffPixelCount)
		}
		if result.DiffAmount != 0.5 {
			t.Errorf("Expected DiffAmount to be 0.5, got %f", result.DiffAmount)
		}
		if result.RowCounts[0] != 100 || result.RowCounts[49] != 100 || result.RowCounts[50] != 0 {
			t.Errorf("Unexpected row counts: %v", result.RowCounts)
		}
	})

	t.Run("SameImageInstance", func(t *testing.T) {
		img := createTestImage(100, 100, black)

		result, err := pd.Calculate(img, img)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.DiffPixelCount != 0 {
			t.Errorf("Expected DiffPixelCount to be 0 for same image instance, got %d", result.DiffPixelCount)
		}
		if &result.Image.Pix[0] == &img.Pix[0] {
			t.Errorf("Expected diff image to be a fresh buffer")
		}
		if diff := cmp.Diff(black[:], img.Pix[:4]); diff != "" {
			t.Errorf("Expected input to stay untouched (-want +got):\n%s", diff)
		}
	})

	t.Run("BelowThreshold", func(t *testing.T) {
		img1 := createTestImage(10, 10, white)
		img2 := createTestImage(10, 10, [4]uint8{250, 250, 250, 255})

		result, err := pd.Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.DiffPixelCount != 0 {
			t.Errorf("Expected DiffPixelCount to be 0, got %d", result.DiffPixelCount)
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		img1 := createTestImage(100, 100, white)
		img2 := createTestImage(100, 99, white)

		result, err := pd.Calculate(img1, img2)

		var mismatch *DimensionMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("Expected *DimensionMismatchError, got %v", err)
		}
		if result != nil {
			t.Errorf("Expected no diff result, got %+v", result)
		}
		if diff := cmp.Diff(&DimensionMismatchError{100, 100, 100, 99}, mismatch); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("EmptyImage", func(t *testing.T) {
		result, err := pd.Calculate(buffer.New(0, 0), buffer.New(0, 0))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.DiffPixelCount != 0 || result.DiffAmount != 0.0 {
			t.Errorf("Expected empty result, got %+v", result)
		}
	})
}

func TestPixelDiff_AntiAliasing(t *testing.T) {
	img1 := createEdgeImage(128)
	img2 := createEdgeImage(60)

	t.Run("Excluded", func(t *testing.T) {
		result, err := NewPixelDiff(DefaultOptions()).Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.DiffPixelCount != 0 {
			t.Errorf("Expected DiffPixelCount to be 0, got %d", result.DiffPixelCount)
		}
		if diff := cmp.Diff([4]uint8{255, 255, 0, 255}, pixelAt(result.Image, 2, 2)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Included", func(t *testing.T) {
		options := DefaultOptions()
		options.IncludeAA = true

		result, err := NewPixelDiff(options).Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.DiffPixelCount != 5 {
			t.Errorf("Expected DiffPixelCount to be 5, got %d", result.DiffPixelCount)
		}
		if diff := cmp.Diff([4]uint8{255, 0, 0, 255}, pixelAt(result.Image, 2, 2)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestPixelDiff_Deterministic(t *testing.T) {
	img1 := createTestImage(64, 48, white)
	img2 := createTestImage(64, 48, white)
	for i := range img2.Pix {
		if i%4 != 3 {
			img2.Pix[i] = byte((i * 131) % 256)
		}
	}

	pd := NewPixelDiff(DefaultOptions())

	first, err := pd.Calculate(img1, img2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := pd.Calculate(img1, img2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("(-first +second):\n%s", diff)
	}
	if first.DiffPixelCount == 0 {
		t.Errorf("Expected some differing pixels")
	}
}

func BenchmarkPixelDiff_Calculate_Small(b *testing.B) {
	pd := NewPixelDiff(DefaultOptions())
	img1 := createTestImage(1920, 1080, white)
	img2 := createTestImage(1920, 1080, black)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pd.Calculate(img1, img2)
	}
}

func BenchmarkPixelDiff_Calculate_Large(b *testing.B) {
	pd := NewPixelDiff(DefaultOptions())
	img1 := createTestImage(3840, 2160, white)
	img2 := createTestImage(3840, 2160, black)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pd.Calculate(img1, img2)
	}
}
