// Package j2k implements the tile-oriented JPEG 2000 bridge: a uniform
// Container/Reader/Writer abstraction over a pluggable J2K codec, streaming
// tiles to and from the abstract stream interface without re-implementing
// wavelet compression itself.
package j2k

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrKindComponentMismatch is returned when Kind and Components disagree:
// grayscale images carry exactly one component, RGB images exactly three.
var ErrKindComponentMismatch = errors.New("j2k: kind and component count disagree")

var validate = validator.New()

// Kind identifies the sample interpretation of a container's components.
type Kind int

const (
	KindGrayscale Kind = iota
	KindRGB
)

func (k Kind) String() string {
	switch k {
	case KindGrayscale:
		return "grayscale"
	case KindRGB:
		return "rgb"
	default:
		return "unknown"
	}
}

// ContainerDescriptor is the immutable geometry/sample description of a J2K
// image: constructed explicitly on the encoder path, or filled by a reader
// after header parse on the decoder path.
type ContainerDescriptor struct {
	OriginX int `validate:"gte=0"`
	OriginY int `validate:"gte=0"`

	Width  int `validate:"gt=0"`
	Height int `validate:"gt=0"`

	TileWidth  int `validate:"gt=0"`
	TileHeight int `validate:"gt=0"`

	// Components is the sample count per pixel: 1 for KindGrayscale, 3 for
	// KindRGB. Only these two layouts are supported end to end — the
	// backend's pixel codec (samplesAt/extractRegion) has no 2- or
	// 4-component case, so those are rejected here rather than accepted and
	// left to corrupt or panic downstream.
	Components int  `validate:"oneof=1 3"`
	Precision  int  `validate:"gte=1,lte=32"`
	Signed     bool
	Kind       Kind
}

// NewContainerDescriptor builds and validates a descriptor, computing
// derived fields that callers never set directly.
func NewContainerDescriptor(desc ContainerDescriptor) (*ContainerDescriptor, error) {
	d := desc
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("j2k: invalid container descriptor: %w", err)
	}
	switch {
	case d.Kind == KindGrayscale && d.Components != 1:
		return nil, fmt.Errorf("j2k: invalid container descriptor: %w: grayscale requires 1 component, got %d", ErrKindComponentMismatch, d.Components)
	case d.Kind == KindRGB && d.Components != 3:
		return nil, fmt.Errorf("j2k: invalid container descriptor: %w: rgb requires 3 components, got %d", ErrKindComponentMismatch, d.Components)
	}
	return &d, nil
}

// ComponentBytes returns the per-sample byte width derived from Precision,
// rounding up: componentBytes = ((precision-1)/8)+1.
func (d *ContainerDescriptor) ComponentBytes() int {
	return ((d.Precision - 1) / 8) + 1
}

// XTiles returns the number of tile columns: ceil(width / tileWidth).
func (d *ContainerDescriptor) XTiles() int {
	return ceilDiv(d.Width, d.TileWidth)
}

// YTiles returns the number of tile rows: ceil(height / tileHeight).
func (d *ContainerDescriptor) YTiles() int {
	return ceilDiv(d.Height, d.TileHeight)
}

// TileIndex returns the raster-order index of tile (tileX, tileY), the same
// numbering the writer and reader both use to address a tile:
// tileIndex = tileY * xTiles + tileX.
func (d *ContainerDescriptor) TileIndex(tileX, tileY int) int {
	return tileY*d.XTiles() + tileX
}

// TileBounds returns the pixel rectangle [x0,y0,x1,y1) covered by tile
// (tileX, tileY), clipped to the image's actual width/height for edge tiles.
func (d *ContainerDescriptor) TileBounds(tileX, tileY int) (x0, y0, x1, y1 int) {
	x0 = tileX * d.TileWidth
	y0 = tileY * d.TileHeight
	x1 = min(x0+d.TileWidth, d.Width)
	y1 = min(y0+d.TileHeight, d.Height)
	return
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
