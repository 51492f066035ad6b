// Package backend adapts github.com/mrjoshuak/go-jpeg2000 to the j2k.Codec
// capability set. It owns every call into the wavelet/entropy coder; the
// rest of this module only ever sees tile/region byte buffers.
package backend

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	jpeg2000 "github.com/mrjoshuak/go-jpeg2000"

	"github.com/cocosip/go-nitf-tre/j2k"
	"github.com/cocosip/go-nitf-tre/nitferr"
	"github.com/cocosip/go-nitf-tre/stream"
)

// Name and Tag identify this codec in the j2k.Registry.
const (
	Name = "jpeg2000"
	Tag  = "C8" // NITF compression code for JPEG 2000
)

func init() {
	j2k.Register(&codec{})
}

type codec struct{}

func (codec) Name() string { return Name }
func (codec) Tag() string  { return Tag }

func (codec) OpenReader(src stream.Stream, offset, length int64) (j2k.Reader, error) {
	return openReader(src, offset, length)
}

func (codec) NewWriter(desc *j2k.ContainerDescriptor, params j2k.EncoderParams) (j2k.Writer, error) {
	return newWriter(desc, params)
}

// reader re-reads the codestream (via readAllFrom) and fully decodes it (via
// jpeg2000.Decode) on every ReadTile/ReadRegion call rather than caching
// decoder state: the
// wrapped codec is not restartable mid-stream, so there is no cheaper option
// without forking it. Header re-parse on every tile read is a documented
// design choice for exactly this situation. Every read is confined to win,
// the codestream's own bounded sub-stream within the caller's source — the
// codec never sees bytes outside its declared segment.
type reader struct {
	win  *stream.Window
	desc *j2k.ContainerDescriptor
}

func openReader(src stream.Stream, offset, length int64) (*reader, error) {
	win, err := segmentWindow(src, offset, length)
	if err != nil {
		return nil, nitferr.New(nitferr.InvalidArgument, "backend.openReader", err)
	}
	raw, err := readAllFrom(win)
	if err != nil {
		return nil, nitferr.New(nitferr.IoFailure, "backend.openReader", err)
	}
	meta, err := jpeg2000.DecodeMetadata(bytes.NewReader(raw))
	if err != nil {
		return nil, nitferr.New(nitferr.ParseError, "backend.openReader", err)
	}

	// Only 1- and 3-component images are supported (KindGrayscale,
	// KindRGB); anything else — 2-component, RGBA's 4, etc. — is left for
	// NewContainerDescriptor to reject below rather than guessed at here.
	kind := j2k.KindGrayscale
	if meta.NumComponents == 3 {
		kind = j2k.KindRGB
	}
	precision := 8
	if len(meta.BitsPerComponent) > 0 {
		precision = meta.BitsPerComponent[0]
	}
	signed := len(meta.Signed) > 0 && meta.Signed[0]

	tw, th := meta.TileWidth, meta.TileHeight
	if tw == 0 {
		tw = meta.Width
	}
	if th == 0 {
		th = meta.Height
	}

	desc, err := j2k.NewContainerDescriptor(j2k.ContainerDescriptor{
		Width:      meta.Width,
		Height:     meta.Height,
		TileWidth:  tw,
		TileHeight: th,
		Components: meta.NumComponents,
		Precision:  precision,
		Signed:     signed,
		Kind:       kind,
	})
	if err != nil {
		return nil, nitferr.New(nitferr.ParseError, "backend.openReader", err)
	}
	return &reader{win: win, desc: desc}, nil
}

// segmentWindow resolves length==0 to "the rest of src past offset" and
// returns a Window bounding every subsequent read to that range.
func segmentWindow(src stream.Stream, offset, length int64) (*stream.Window, error) {
	if length == 0 {
		size, err := src.Size()
		if err != nil {
			return nil, err
		}
		length = size - offset
	}
	return stream.NewWindow(src, offset, length), nil
}

func (r *reader) CanReadTiles() bool { return true }

func (r *reader) GetContainer() *j2k.ContainerDescriptor { return r.desc }

func (r *reader) Close() error { return nil }

func (r *reader) ReadTile(tileX, tileY int, outBuf []byte) ([]byte, error) {
	x0, y0, x1, y1 := r.desc.TileBounds(tileX, tileY)
	return r.ReadRegion(x0, y0, x1, y1, outBuf)
}

func (r *reader) ReadRegion(x0, y0, x1, y1 int, outBuf []byte) ([]byte, error) {
	if x1 == 0 {
		x1 = r.desc.Width
	}
	if y1 == 0 {
		y1 = r.desc.Height
	}
	if x0 < 0 || y0 < 0 || x1 > r.desc.Width || y1 > r.desc.Height || x0 >= x1 || y0 >= y1 {
		return nil, nitferr.New(nitferr.InvalidArgument, "backend.ReadRegion",
			fmt.Errorf("region [%d,%d,%d,%d) out of image bounds %dx%d", x0, y0, x1, y1, r.desc.Width, r.desc.Height))
	}

	raw, err := readAllFrom(r.win)
	if err != nil {
		return nil, nitferr.New(nitferr.IoFailure, "backend.ReadRegion", err)
	}
	img, err := jpeg2000.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nitferr.New(nitferr.CodecError, "backend.ReadRegion", err)
	}

	want := (x1 - x0) * (y1 - y0) * r.desc.Components * r.desc.ComponentBytes()
	if outBuf == nil {
		outBuf = make([]byte, want)
	} else if len(outBuf) < want {
		return nil, nitferr.New(nitferr.InvalidArgument, "backend.ReadRegion",
			fmt.Errorf("outBuf too small: have %d, need %d", len(outBuf), want))
	}
	extractRegion(img, r.desc, x0, y0, x1, y1, outBuf)
	return outBuf[:want], nil
}

// readAllFrom reads win's entire declared length, rewinding to its start
// first so repeated calls (one per ReadTile/ReadRegion) each see the full
// codestream regardless of where the previous call left the position.
func readAllFrom(win *stream.Window) ([]byte, error) {
	size, err := win.Size()
	if err != nil {
		return nil, err
	}
	if _, err := win.Seek(0, stream.SeekSet); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if len(buf) == 0 {
		return buf, nil
	}
	if err := win.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writer buffers one pixel-interleaved byte plane per tile, keyed by tile
// index, and composes them into a single image.Image only once Write is
// called — the wrapped codec's Encode entry point takes a whole image, not
// a tile stream, so tiles accumulate and are encoded as a whole on Write.
type writer struct {
	desc   *j2k.ContainerDescriptor
	params j2k.EncoderParams
	tiles  map[int][]byte
	done   bool
}

func newWriter(desc *j2k.ContainerDescriptor, params j2k.EncoderParams) (*writer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &writer{desc: desc, params: params, tiles: make(map[int][]byte)}, nil
}

func (w *writer) GetContainer() *j2k.ContainerDescriptor { return w.desc }

func (w *writer) Close() error { return nil }

func (w *writer) SetTile(tileX, tileY int, buf []byte) error {
	if w.done {
		return nitferr.New(nitferr.InvalidArgument, "backend.SetTile", fmt.Errorf("writer already written"))
	}
	idx := w.desc.TileIndex(tileX, tileY)
	stored := make([]byte, len(buf))
	copy(stored, buf)
	w.tiles[idx] = stored
	return nil
}

func (w *writer) Write(sink stream.Stream) error {
	if w.done {
		return nitferr.New(nitferr.InvalidArgument, "backend.Write", fmt.Errorf("writer already written"))
	}
	img, err := assembleImage(w.desc, w.tiles)
	if err != nil {
		return nitferr.New(nitferr.CodecError, "backend.Write", err)
	}

	opts := &jpeg2000.Options{
		Format:           jpeg2000.FormatJ2K,
		Lossless:         w.params.Lossless,
		Quality:          w.params.Quality,
		NumResolutions:   w.params.ResolutionLevels,
		ProgressionOrder: jpeg2000.LRCP,
		NumLayers:        1,
		TileSize:         image.Point{X: w.desc.TileWidth, Y: w.desc.TileHeight},
	}

	var out bytes.Buffer
	if err := jpeg2000.Encode(&out, img, opts); err != nil {
		return nitferr.New(nitferr.CodecError, "backend.Write", err)
	}
	if err := sink.Write(out.Bytes()); err != nil {
		return nitferr.New(nitferr.IoFailure, "backend.Write", err)
	}
	w.done = true
	return nil
}

// assembleImage composites every buffered tile into one full-extent
// image.Image, reading each tile's bytes as pixel-interleaved
// componentBytes-wide samples, row-major within the tile.
func assembleImage(desc *j2k.ContainerDescriptor, tiles map[int][]byte) (image.Image, error) {
	switch desc.Kind {
	case j2k.KindRGB:
		img := image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height))
		if err := paintTiles(desc, tiles, func(x, y int, samples []int) {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(samples[0]), G: uint8(samples[1]), B: uint8(samples[2]), A: 255,
			})
		}); err != nil {
			return nil, err
		}
		return img, nil
	default:
		img := image.NewGray(image.Rect(0, 0, desc.Width, desc.Height))
		if err := paintTiles(desc, tiles, func(x, y int, samples []int) {
			img.SetGray(x, y, color.Gray{Y: uint8(samples[0])})
		}); err != nil {
			return nil, err
		}
		return img, nil
	}
}

func paintTiles(desc *j2k.ContainerDescriptor, tiles map[int][]byte, set func(x, y int, samples []int)) error {
	cb := desc.ComponentBytes()
	comps := desc.Components
	for ty := 0; ty < desc.YTiles(); ty++ {
		for tx := 0; tx < desc.XTiles(); tx++ {
			idx := desc.TileIndex(tx, ty)
			buf, ok := tiles[idx]
			if !ok {
				return fmt.Errorf("tile (%d,%d) was never set", tx, ty)
			}
			x0, y0, x1, y1 := desc.TileBounds(tx, ty)
			tw := x1 - x0
			stride := tw * comps * cb
			samples := make([]int, comps)
			for y := y0; y < y1; y++ {
				rowOff := (y - y0) * stride
				for x := x0; x < x1; x++ {
					pixOff := rowOff + (x-x0)*comps*cb
					for c := 0; c < comps; c++ {
						samples[c] = readSample(buf, pixOff+c*cb, cb)
					}
					set(x, y, samples)
				}
			}
		}
	}
	return nil
}

// extractRegion reads img's pixels in [x0,y0,x1,y1) into out as
// pixel-interleaved componentBytes-wide samples, row-major, matching the
// layout paintTiles expects on the way in.
func extractRegion(img image.Image, desc *j2k.ContainerDescriptor, x0, y0, x1, y1 int, out []byte) {
	cb := desc.ComponentBytes()
	comps := desc.Components
	stride := (x1 - x0) * comps * cb
	for y := y0; y < y1; y++ {
		rowOff := (y - y0) * stride
		for x := x0; x < x1; x++ {
			pixOff := rowOff + (x-x0)*comps*cb
			samples := samplesAt(img, x, y, comps)
			for c := 0; c < comps; c++ {
				writeSample(out, pixOff+c*cb, cb, samples[c])
			}
		}
	}
}

func samplesAt(img image.Image, x, y, comps int) []int {
	switch comps {
	case 1:
		g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
		return []int{int(g.Y)}
	default:
		r, g, b, _ := img.At(x, y).RGBA()
		return []int{int(r >> 8), int(g >> 8), int(b >> 8)}
	}
}

func readSample(buf []byte, off, width int) int {
	v := 0
	for i := 0; i < width; i++ {
		v = v<<8 | int(buf[off+i])
	}
	return v
}

func writeSample(buf []byte, off, width, v int) {
	for i := width - 1; i >= 0; i-- {
		buf[off+i] = byte(v)
		v >>= 8
	}
}
