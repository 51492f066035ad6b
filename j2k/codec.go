package j2k

import (
	"errors"
	"sync"

	"github.com/cocosip/go-nitf-tre/stream"
)

// ErrCodecNotFound is returned by Get when no codec is registered under the
// requested name or tag.
var ErrCodecNotFound = errors.New("j2k: codec not found")

// Codec is the pluggable back end behind Reader/Writer: the capability set a
// concrete JPEG 2000 implementation exposes to the container bridge. The
// core never performs wavelet/entropy coding itself; it only drives this
// interface.
type Codec interface {
	// Name is a human-readable identifier, e.g. "jpeg2000".
	Name() string
	// Tag is the dispatch key image segments use to select this codec, e.g.
	// the NITF compression code "C8" (JPEG 2000).
	Tag() string

	// OpenReader parses the codestream header within the half-open byte
	// range [offset, offset+length) of src — length==0 means "to the end of
	// src" — and returns a Reader bound to the resulting container. The
	// codec must confine every read it performs to that range, the way a
	// NITF image segment's compressed sub-stream is bounded within its
	// containing file.
	OpenReader(src stream.Stream, offset, length int64) (Reader, error)
	// NewWriter allocates a Writer for container desc, configured per
	// params.
	NewWriter(desc *ContainerDescriptor, params EncoderParams) (Writer, error)
}

// Reader is a tile- and region-random-access view over one codestream.
type Reader interface {
	// CanReadTiles reports whether this codec supports tile random access.
	CanReadTiles() bool
	// ReadTile decodes tile (tileX, tileY) into outBuf, allocating it if nil,
	// and returns the slice actually written.
	ReadTile(tileX, tileY int, outBuf []byte) ([]byte, error)
	// ReadRegion decodes the rectangle [x0,y0,x1,y1) into outBuf (x1==0
	// means width, y1==0 means height), allocating it if nil.
	ReadRegion(x0, y0, x1, y1 int, outBuf []byte) ([]byte, error)
	// GetContainer returns the descriptor parsed from the codestream header.
	GetContainer() *ContainerDescriptor
	// Close releases codec resources (stream, codec handle, image — in that
	// order).
	Close() error
}

// Writer accumulates tiles and emits a complete codestream.
type Writer interface {
	// SetTile hands tile (tileX, tileY)'s pixel bytes to the codec. The
	// writer never reorders tiles; it is the caller's responsibility to
	// respect whatever ordering the codec requires.
	SetTile(tileX, tileY int, buf []byte) error
	// Write ends compression and copies the resulting codestream to sink.
	// After Write the writer is terminal.
	Write(sink stream.Stream) error
	// GetContainer returns the descriptor the writer was constructed with.
	GetContainer() *ContainerDescriptor
	// Close releases codec resources.
	Close() error
}

// Registry maps codec names/tags to registered Codec implementations,
// mirroring a DICOM transfer-syntax registry's dual name/UID lookup: one
// codec reachable by more than one key.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

var defaultRegistry = &Registry{codecs: make(map[string]Codec)}

// Register adds codec to the default registry under both its Name and Tag.
func Register(codec Codec) { defaultRegistry.Register(codec) }

// Get retrieves a codec from the default registry by name or tag.
func Get(nameOrTag string) (Codec, error) { return defaultRegistry.Get(nameOrTag) }

// List returns all distinct codecs registered in the default registry.
func List() []Codec { return defaultRegistry.List() }

// Register adds codec to r under both its Name and Tag.
func (r *Registry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[codec.Name()] = codec
	r.codecs[codec.Tag()] = codec
}

// Get retrieves a codec by name or tag.
func (r *Registry) Get(nameOrTag string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[nameOrTag]
	if !ok {
		return nil, ErrCodecNotFound
	}
	return c, nil
}

// List returns all distinct codecs registered in r.
func (r *Registry) List() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[Codec]bool)
	out := make([]Codec, 0, len(r.codecs))
	for _, c := range r.codecs {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
