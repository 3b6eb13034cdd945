// Package assets loads and checks the skin images referenced by SCML manifests.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"os"
	"sync"

	"github.com/h2non/filetype"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/tiff" // TIFF decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration

	"github.com/Faultbox/chophuman/internal/config"
	"github.com/Faultbox/chophuman/pkg/formats"
	"github.com/Faultbox/chophuman/pkg/rig"
)

// Asset errors.
var (
	ErrNotImage     = errors.New("not an image")
	ErrTooLarge     = errors.New("image file too large")
	ErrSizeMismatch = errors.New("image size does not match manifest")
)

// Image is a decoded asset file.
type Image struct {
	Image image.Image
	Kind  string // file extension detected from content, e.g. "png"
	MIME  string
	Bytes int64
}

// Loader reads image assets from disk.
type Loader struct {
	cache    *Cache
	maxBytes int64
	log      *zap.Logger
	mu       sync.Mutex
	reads    int
}

// NewLoader creates a loader. A nil log discards output.
func NewLoader(cfg config.AssetsConfig, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loader{
		maxBytes: cfg.MaxFileBytes,
		log:      log,
	}
	if cfg.CacheImages {
		l.cache = NewCache()
	}
	return l
}

// Load reads and decodes the image at path.
func (l *Loader) Load(path string) (*Image, error) {
	if l.cache != nil {
		if img, ok := l.cache.Get(path); ok {
			return img, nil
		}
	}

	data, err := l.read(path)
	if err != nil {
		return nil, err
	}

	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, path)
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s (%s): %w", path, kind.Extension, err)
	}

	img := &Image{
		Image: decoded,
		Kind:  kind.Extension,
		MIME:  kind.MIME.Value,
		Bytes: int64(len(data)),
	}
	if l.cache != nil {
		l.cache.Set(path, img)
	}
	l.log.Debug("loaded image",
		zap.String("path", path),
		zap.String("kind", img.Kind),
		zap.Int("width", decoded.Bounds().Dx()),
		zap.Int("height", decoded.Bounds().Dy()))
	return img, nil
}

func (l *Loader) read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rig.ErrIO, err)
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, info.Size(), l.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rig.ErrIO, err)
	}

	l.mu.Lock()
	l.reads++
	l.mu.Unlock()
	return data, nil
}

// Reads returns how many files were read from disk.
func (l *Loader) Reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Cache returns the loader's cache, or nil when caching is disabled.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// Report is the result of checking one manifest entry.
type Report struct {
	File  formats.FileEntry
	Image *Image
	Err   error
}

// Verify loads every file in the manifest and checks its dimensions against
// the recorded width and height. It returns one report per file and the
// combined error of all failed files.
func (l *Loader) Verify(m *formats.Manifest) ([]Report, error) {
	var (
		reports []Report
		errs    error
	)
	for _, f := range m.Files() {
		r := Report{File: f}
		r.Image, r.Err = l.Load(f.Path)
		if r.Err == nil {
			r.Err = checkSize(f, r.Image.Image)
		}
		if r.Err != nil {
			l.log.Warn("asset check failed", zap.String("file", f.Name), zap.Error(r.Err))
			errs = multierr.Append(errs, fmt.Errorf("file %q: %w", f.Name, r.Err))
		}
		reports = append(reports, r)
	}
	return reports, errs
}

func checkSize(f formats.FileEntry, img image.Image) error {
	b := img.Bounds()
	if (f.Width != 0 && b.Dx() != f.Width) || (f.Height != 0 && b.Dy() != f.Height) {
		return fmt.Errorf("%w: %s is %dx%d, manifest says %dx%d", ErrSizeMismatch, f.Name, b.Dx(), b.Dy(), f.Width, f.Height)
	}
	return nil
}

// SkinImages loads the images of every manifest file that belongs to a bone,
// keyed by bone name, ready to be exported again.
func (l *Loader) SkinImages(m *formats.Manifest) (map[string]formats.SkinImages, error) {
	out := make(map[string]formats.SkinImages)
	for _, f := range m.Files() {
		if f.Bone == "" {
			continue
		}
		img, err := l.Load(f.Path)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", f.Name, err)
		}
		if err := checkSize(f, img.Image); err != nil {
			return nil, err
		}

		region := &formats.ImageRegion{
			Image:  img.Image,
			Width:  f.Width,
			Height: f.Height,
			Offset: f.Offset,
		}
		skin := out[f.Bone]
		if f.Normal {
			skin.Normal = region
		} else {
			skin.Diffuse = region
		}
		out[f.Bone] = skin
	}
	return out, nil
}

// Cache is a simple in-memory cache for decoded images.
type Cache struct {
	data map[string]*Image
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*Image),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return img, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, img *Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = img
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*Image)
	c.hits = 0
	c.misses = 0
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
