// Package avatar validates uploaded profile images and normalizes them to a
// fixed-size PNG.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/disintegration/imaging"
)

const (
	// MaxUploadBytes is the largest accepted upload.
	MaxUploadBytes = 1_000_000

	// Size is the edge length, in pixels, of every stored avatar.
	Size = 250

	// ContentType is the media type of every stored avatar.
	ContentType = "image/png"
)

var (
	// ErrTooLarge is returned for uploads over MaxUploadBytes.
	ErrTooLarge = errors.New("File too large")

	// ErrUnsupportedType is returned when the filename does not end in an
	// accepted image extension.
	ErrUnsupportedType = errors.New("Please upload an image")

	// ErrDecode is returned when the content cannot be decoded as an image.
	ErrDecode = errors.New("Unable to read image")
)

var allowedFilename = regexp.MustCompile(`\.(jpg|png|jpeg|JPG|PNG|JPEG)$`)

// ValidateFilename reports whether name carries an accepted image extension.
// Mixed-case extensions such as ".Jpg" are rejected.
func ValidateFilename(name string) error {
	if !allowedFilename.MatchString(name) {
		return ErrUnsupportedType
	}
	return nil
}

// Processor turns uploads into stored avatars.
type Processor struct {
	maxBytes int64
	size     int
}

// NewProcessor creates a Processor using the default limits.
func NewProcessor() *Processor {
	return &Processor{maxBytes: MaxUploadBytes, size: Size}
}

// MaxBytes returns the upload limit enforced by Process.
func (p *Processor) MaxBytes() int64 {
	return p.maxBytes
}

// Process validates and normalizes one upload: the filename must carry an
// image extension, the content must fit in the limit and decode as an image.
// The result is a PNG cropped and scaled to fill a Size x Size square.
func (p *Processor) Process(filename string, r io.Reader) ([]byte, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	return p.Normalize(data)
}

// Normalize decodes data and re-encodes it as a Size x Size PNG.
func (p *Processor) Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := imaging.Fill(img, p.size, p.size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
