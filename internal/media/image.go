package media

import (
	"fmt"
	"image"
	"math"

	"genai-gallery/internal/filesystem"
	"genai-gallery/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height we'll process.
	// Larger images are downscaled before thumbnailing.
	MaxImageDimension = 4096

	// MaxImagePixels is the maximum total pixels (width * height) we'll process.
	MaxImagePixels = 20_000_000 // ~20MP, ~80MB in RGBA
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// LoadImageConstrained loads an image, downscaling it when it exceeds
// maxDimension on either side or maxPixels in total.
func LoadImageConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	dimensions, err := GetImageDimensions(path)
	if err != nil {
		logging.Debug("Could not get image dimensions for %s: %v", path, err)
		return imaging.Open(path, imaging.AutoOrientation(true))
	}

	width, height := dimensions.Width, dimensions.Height
	target := constrain(*dimensions, maxDimension, maxPixels)

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	if target.Width == width && target.Height == height {
		return img, nil
	}

	logging.Info("Constraining large image %s from %dx%d to %dx%d", path, width, height, target.Width, target.Height)
	return imaging.Resize(img, target.Width, target.Height, imaging.Lanczos), nil
}

// constrain returns the dimensions an image is scaled to so it fits both
// limits, preserving aspect ratio.
func constrain(d ImageDimensions, maxDimension, maxPixels int) ImageDimensions {
	w, h := d.Width, d.Height
	if w <= 0 || h <= 0 {
		return d
	}

	if w > maxDimension || h > maxDimension {
		if w > h {
			h = h * maxDimension / w
			w = maxDimension
		} else {
			w = w * maxDimension / h
			h = maxDimension
		}
	}

	if pixels := w * h; pixels > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(pixels))
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}

	return ImageDimensions{Width: max(w, 1), Height: max(h, 1)}
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}
