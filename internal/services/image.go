package services

import (
	"context"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Extensions the image processor can read and write.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImageExtension reports whether ext (with dot) is a supported image type.
func IsImageExtension(ext string) bool {
	return imageExtensions[strings.ToLower(ext)]
}

// ImagingProcessor makes thumbnails with disintegration/imaging.
type ImagingProcessor struct {
	width   int
	quality int
}

// NewImagingProcessor returns a processor resizing to width pixels wide and
// encoding JPEG output at quality (1-100).
func NewImagingProcessor(width, quality int) *ImagingProcessor {
	return &ImagingProcessor{width: width, quality: quality}
}

func (p *ImagingProcessor) Thumbnail(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !IsImageExtension(filepath.Ext(dst)) {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, filepath.Ext(dst))
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	// never upscale
	if img.Bounds().Dx() > p.width {
		img = imaging.Resize(img, p.width, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, dst,
		imaging.JPEGQuality(p.quality),
		imaging.PNGCompressionLevel(png.BestCompression),
	); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return nil
}

var _ ImageProcessor = (*ImagingProcessor)(nil)
