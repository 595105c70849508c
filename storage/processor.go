package storage

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

// Processor transforms uploaded image bytes before they are stored.
type Processor interface {
	Process(data []byte, filename string) ([]byte, error)
}

// Passthrough stores uploads exactly as received.
type Passthrough struct{}

func (Passthrough) Process(data []byte, filename string) ([]byte, error) { return data, nil }

// Downscaler shrinks images wider than MaxWidth, keeping the aspect ratio and the original format.
// Files that are not decodable images, or formats imaging cannot encode, are kept as received.
type Downscaler struct {
	MaxWidth int
}

func (d Downscaler) Process(data []byte, filename string) ([]byte, error) {
	if d.MaxWidth <= 0 {
		return data, nil
	}
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return data, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= d.MaxWidth {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, nil
	}
	resized := imaging.Resize(img, d.MaxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewProcessor returns a Downscaler when maxWidth is positive, otherwise Passthrough.
func NewProcessor(maxWidth int) Processor {
	if maxWidth > 0 {
		return Downscaler{MaxWidth: maxWidth}
	}
	return Passthrough{}
}
