package extract

import (
	"fmt"
	"image"
	"image/gif"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"findex/internal/findex"
	"findex/internal/model"
)

// ImageExtractor decodes still images for dimensions, a perceptual
// summary hash, and GIF animation details. A file that claims to be an
// image but cannot be decoded is reported as an extraction error; the
// caller records it as corrupt rather than failing the import.
type ImageExtractor struct {
	logger findex.Logger
}

// NewImageExtractor creates an ImageExtractor.
func NewImageExtractor(logger findex.Logger) *ImageExtractor {
	return &ImageExtractor{logger: logger}
}

// Extract decodes the image at path and returns its metadata.
func (e *ImageExtractor) Extract(path, mediaType string) (*model.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &findex.ExtractionError{Path: path, MediaType: mediaType, Err: err}
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, &findex.ExtractionError{Path: path, MediaType: mediaType, Err: fmt.Errorf("decode config: %w", err)}
	}

	info := &model.ImageInfo{Width: cfg.Width, Height: cfg.Height}
	md := &model.Metadata{Image: info}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, &findex.ExtractionError{Path: path, MediaType: mediaType, Err: err}
	}

	if format == "gif" {
		anim, err := gif.DecodeAll(f)
		if err != nil {
			return nil, &findex.ExtractionError{Path: path, MediaType: mediaType, Err: fmt.Errorf("decode gif: %w", err)}
		}
		if len(anim.Image) > 1 {
			info.Animated = true
			md.DurationMS = gifDurationMS(anim)
		}
		e.summarize(anim.Image[0], info, path)
		return md, nil
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &findex.ExtractionError{Path: path, MediaType: mediaType, Err: fmt.Errorf("decode: %w", err)}
	}
	e.summarize(img, info, path)
	return md, nil
}

// summarize computes a perceptual difference hash. Failure costs only
// the summary field, never the extraction.
func (e *ImageExtractor) summarize(img image.Image, info *model.ImageInfo, path string) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		e.logger.Warn("perceptual hash failed", "path", path, "error", err)
		return
	}
	info.Thumbhash = hash.ToString()
}

// gifDurationMS sums frame delays. GIF delays are in hundredths of a
// second.
func gifDurationMS(anim *gif.GIF) int64 {
	var total int64
	for _, delay := range anim.Delay {
		total += int64(delay) * 10
	}
	return total
}
