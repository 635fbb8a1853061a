package frame

import (
	"context"
	"image"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	thserrors "github.com/five82/thumbsync/internal/errors"
)

const (
	// DefaultCacheBytes bounds the pixel memory CachedDecoder keeps.
	DefaultCacheBytes int64 = 512 << 20

	// maxCacheEntries caps entries regardless of size; failures and probed
	// sizes are tiny but still occupy a slot.
	maxCacheEntries = 4096
)

type cacheEntry struct {
	img  image.Image
	err  error
	size int64
}

type sizeEntry struct {
	rect image.Rectangle
	err  error
}

// CachedDecoder memoizes FirstFrame and DisplaySize results, failures
// included, so a video shared by many thumbnails is decoded once. It is safe
// for concurrent use.
//
// The cache holds one video directory at a time: moving on to a candidate in
// another directory drops everything from the previous one. Within a
// directory, frames are admitted until the byte budget is spent and the rest
// are decoded on every request. Thumbnails scan candidates in a fixed order,
// so keeping the first frames that fit gives hits where evicting the oldest
// would give none.
type CachedDecoder struct {
	inner    Decoder
	maxBytes int64

	mu     sync.Mutex
	dir    string
	bytes  int64
	frames *lru.Cache[string, cacheEntry]
	sizes  *lru.Cache[string, sizeEntry]
}

// NewCachedDecoder wraps inner with a frame cache of at most maxBytes of
// pixel data. Zero or less uses DefaultCacheBytes.
func NewCachedDecoder(inner Decoder, maxBytes int64) *CachedDecoder {
	if maxBytes <= 0 {
		maxBytes = DefaultCacheBytes
	}
	c := &CachedDecoder{inner: inner, maxBytes: maxBytes}
	// Only fails for a non-positive size.
	c.frames, _ = lru.NewWithEvict(maxCacheEntries, func(_ string, e cacheEntry) {
		c.bytes -= e.size
	})
	c.sizes, _ = lru.New[string, sizeEntry](maxCacheEntries)
	return c
}

// DecodeImage implements Decoder. Thumbnails are decoded once each, so they
// bypass the cache.
func (c *CachedDecoder) DecodeImage(path string) (image.Image, error) {
	return c.inner.DecodeImage(path)
}

// FirstFrame implements Decoder.
func (c *CachedDecoder) FirstFrame(ctx context.Context, path string) (image.Image, error) {
	c.mu.Lock()
	c.enter(path)
	if e, ok := c.frames.Get(path); ok {
		c.mu.Unlock()
		return e.img, e.err
	}
	c.mu.Unlock()

	img, err := c.inner.FirstFrame(ctx, path)
	if err != nil && thserrors.IsCancelled(err) {
		// Never remember a cancellation as a property of the file.
		return nil, err
	}

	entry := cacheEntry{img: img, err: err, size: frameBytes(img)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if filepath.Dir(path) != c.dir {
		return img, err
	}
	if e, ok := c.frames.Get(path); ok {
		return e.img, e.err
	}
	if c.bytes+entry.size > c.maxBytes {
		return img, err
	}
	c.bytes += entry.size
	c.frames.Add(path, entry)
	return img, err
}

// DisplaySize implements Prober. It reports an empty rectangle when the
// wrapped decoder cannot probe.
func (c *CachedDecoder) DisplaySize(ctx context.Context, path string) (image.Rectangle, error) {
	p, ok := c.inner.(Prober)
	if !ok {
		return image.Rectangle{}, nil
	}

	c.mu.Lock()
	c.enter(path)
	if e, ok := c.sizes.Get(path); ok {
		c.mu.Unlock()
		return e.rect, e.err
	}
	c.mu.Unlock()

	rect, err := p.DisplaySize(ctx, path)
	if err != nil && thserrors.IsCancelled(err) {
		return rect, err
	}

	c.mu.Lock()
	if filepath.Dir(path) == c.dir {
		c.sizes.Add(path, sizeEntry{rect: rect, err: err})
	}
	c.mu.Unlock()
	return rect, err
}

// enter scopes the cache to path's directory. Callers hold mu.
func (c *CachedDecoder) enter(path string) {
	dir := filepath.Dir(path)
	if dir == c.dir {
		return
	}
	c.dir = dir
	c.frames.Purge()
	c.sizes.Purge()
	c.bytes = 0
}

// Len returns the number of cached frames.
func (c *CachedDecoder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames.Len()
}

// Bytes returns the pixel memory held by cached frames.
func (c *CachedDecoder) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// frameBytes estimates the memory behind img's pixels.
func frameBytes(img image.Image) int64 {
	switch m := img.(type) {
	case nil:
		return 0
	case *image.NRGBA:
		return int64(len(m.Pix))
	case *image.RGBA:
		return int64(len(m.Pix))
	case *image.Gray:
		return int64(len(m.Pix))
	case *image.YCbCr:
		return int64(len(m.Y) + len(m.Cb) + len(m.Cr))
	default:
		b := img.Bounds()
		return int64(b.Dx()) * int64(b.Dy()) * 4
	}
}
