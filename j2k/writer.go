package j2k

import (
	"github.com/cocosip/go-nitf-tre/nitferr"
	"github.com/cocosip/go-nitf-tre/stream"
)

// ImageWriter accepts a container descriptor and per-tile pixel buffers and
// produces a complete codestream written to an abstract sink. Lifecycle:
// construct, SetTile any number of times, Write once, then the writer is
// terminal.
type ImageWriter struct {
	codec Codec
	inner Writer
}

// NewWriter allocates a writer for desc using the named codec
// (DefaultCodecTag if empty), configured per params.
func NewWriter(desc *ContainerDescriptor, params EncoderParams, codecTag string) (*ImageWriter, error) {
	if codecTag == "" {
		codecTag = DefaultCodecTag
	}
	c, err := Get(codecTag)
	if err != nil {
		return nil, nitferr.New(nitferr.InvalidArgument, "j2k.NewWriter", err)
	}
	inner, err := c.NewWriter(desc, params)
	if err != nil {
		return nil, err
	}
	return &ImageWriter{codec: c, inner: inner}, nil
}

// SetTile hands tile (tileX, tileY)'s pixel bytes to the codec. Tiles may be
// set in any order the codec permits; the writer never reorders them.
func (w *ImageWriter) SetTile(tileX, tileY int, buf []byte) error {
	return w.inner.SetTile(tileX, tileY, buf)
}

// Write ends compression and copies the resulting codestream to sink. After
// Write the writer is terminal; further SetTile/Write calls are errors.
func (w *ImageWriter) Write(sink stream.Stream) error {
	return w.inner.Write(sink)
}

// GetContainer returns the descriptor the writer was constructed with.
func (w *ImageWriter) GetContainer() *ContainerDescriptor { return w.inner.GetContainer() }

// Close releases the underlying codec resources.
func (w *ImageWriter) Close() error { return w.inner.Close() }
