package j2k

import (
	"fmt"

	"github.com/cocosip/go-nitf-tre/nitferr"
	"github.com/cocosip/go-nitf-tre/stream"
)

// DefaultCodecTag is the codec this package opens readers/writers against
// when the caller doesn't name one explicitly.
const DefaultCodecTag = "jpeg2000"

// ImageReader opens a tile- and region-random-access view over a J2K
// codestream addressed within src starting at offset. It owns no resources
// beyond the underlying Reader the codec returns.
type ImageReader struct {
	codec Codec
	inner Reader
}

// Open parses the codestream header within the half-open byte range
// [offset, offset+length) of src — length==0 means "to the end of src" —
// using the named codec (DefaultCodecTag if empty), and returns a reader
// bound to it. Bounding the range this way is what lets a J2K codestream be
// addressed as one image segment among several sharing the same underlying
// NITF file stream, rather than the codec reading past its own segment.
func Open(src stream.Stream, offset, length int64, codecTag string) (*ImageReader, error) {
	if offset < 0 {
		return nil, nitferr.New(nitferr.InvalidArgument, "j2k.Open", fmt.Errorf("negative offset %d", offset))
	}
	if length < 0 {
		return nil, nitferr.New(nitferr.InvalidArgument, "j2k.Open", fmt.Errorf("negative length %d", length))
	}
	if codecTag == "" {
		codecTag = DefaultCodecTag
	}
	c, err := Get(codecTag)
	if err != nil {
		return nil, nitferr.New(nitferr.InvalidArgument, "j2k.Open", err)
	}
	inner, err := c.OpenReader(src, offset, length)
	if err != nil {
		return nil, err
	}
	return &ImageReader{codec: c, inner: inner}, nil
}

// CanReadTiles reports whether the underlying codec supports tile random
// access.
func (r *ImageReader) CanReadTiles() bool { return r.inner.CanReadTiles() }

// ReadTile decodes tile (tileX, tileY), allocating outBuf when nil, and
// returns the bytes written.
func (r *ImageReader) ReadTile(tileX, tileY int, outBuf []byte) ([]byte, error) {
	return r.inner.ReadTile(tileX, tileY, outBuf)
}

// ReadRegion decodes the rectangle [x0,y0,x1,y1) — x1==0 meaning width,
// y1==0 meaning height — by delegating to the codec's ReadRegion, allocating
// outBuf when nil. On a single-tile image a request for the full extent is
// served by ReadTile(0, 0).
func (r *ImageReader) ReadRegion(x0, y0, x1, y1 int, outBuf []byte) ([]byte, error) {
	desc := r.inner.GetContainer()
	if x1 == 0 {
		x1 = desc.Width
	}
	if y1 == 0 {
		y1 = desc.Height
	}
	if desc.XTiles() == 1 && desc.YTiles() == 1 &&
		x0 == 0 && y0 == 0 && x1 == desc.Width && y1 == desc.Height {
		return r.inner.ReadTile(0, 0, outBuf)
	}
	return r.inner.ReadRegion(x0, y0, x1, y1, outBuf)
}

// GetContainer returns the descriptor parsed from the codestream header.
func (r *ImageReader) GetContainer() *ContainerDescriptor { return r.inner.GetContainer() }

// Close releases the underlying codec resources.
func (r *ImageReader) Close() error { return r.inner.Close() }
