package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const (
	// DefaultMaxLength is the longest link worth encoding as a QR code;
	// denser codes stop scanning reliably on phone cameras.
	DefaultMaxLength = 1500
	// DefaultSize is the rendered PNG edge length in pixels.
	DefaultSize = 200
	maxSize     = 512
)

// ErrLinkTooLong signals that a link exceeds the QR length ceiling. This is a
// designed degraded path, not a failure: the caller shows the link without a
// code and surfaces the exact length.
type ErrLinkTooLong struct {
	Length int
	Max    int
}

func (e *ErrLinkTooLong) Error() string {
	return fmt.Sprintf("link is %d bytes, above the %d byte QR limit", e.Length, e.Max)
}

// Renderer rasterizes share links into PNG QR codes.
type Renderer struct {
	maxLength int
	size      int
}

// NewRenderer creates a renderer. Non-positive arguments fall back to
// defaults; size is clamped to a sane ceiling.
func NewRenderer(maxLength, size int) *Renderer {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return &Renderer{maxLength: maxLength, size: size}
}

// MaxLength returns the configured ceiling.
func (r *Renderer) MaxLength() int {
	return r.maxLength
}

// Render returns the PNG bytes for link, or *ErrLinkTooLong if the link is
// over the ceiling. The encoder is never invoked for over-length links.
func (r *Renderer) Render(link string) ([]byte, error) {
	if len(link) > r.maxLength {
		return nil, &ErrLinkTooLong{Length: len(link), Max: r.maxLength}
	}
	png, err := qrcode.Encode(link, qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %v", err)
	}
	return png, nil
}
