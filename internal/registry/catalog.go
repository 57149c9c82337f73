package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Catalog serves published registry documents from public (r/index.json,
// r/styles, r/colors) and raw component sources from source. Reads are
// cached until Invalidate is called.
type Catalog struct {
	public fs.FS
	source fs.FS
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewCatalog creates a Catalog. source may be nil if raw files are not
// served.
func NewCatalog(public, source fs.FS, logger zerolog.Logger) *Catalog {
	return &Catalog{
		public: public,
		source: source,
		logger: logger.With().Str("component", "catalog").Logger(),
		cache:  make(map[string][]byte),
	}
}

// Index returns the raw r/index.json document.
func (c *Catalog) Index() (json.RawMessage, error) {
	return c.readJSON("r/index.json")
}

// Manifest returns the manifest of component in style.
func (c *Catalog) Manifest(style, component string) (json.RawMessage, error) {
	if !validSegment(style) || !validSegment(component) {
		return nil, ErrNotFound
	}
	return c.readJSON(path.Join("r", "styles", style, component+".json"))
}

// Colors returns the color theme base/name, or an empty object when the
// theme does not exist.
func (c *Catalog) Colors(base, name string) (json.RawMessage, error) {
	if !validSegment(base) || !validSegment(name) {
		return json.RawMessage("{}"), nil
	}
	doc, err := c.readJSON(path.Join("r", "colors", base, name+".json"))
	if errors.Is(err, ErrNotFound) {
		return json.RawMessage("{}"), nil
	}
	return doc, err
}

// Source returns the raw content of a component source file, relative to
// SourceDir. Paths that leave SourceDir are reported as not found.
func (c *Catalog) Source(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, "/")
	if c.source == nil || !fs.ValidPath(name) || name == "." {
		return nil, ErrNotFound
	}
	return c.read(c.source, "src:"+name, path.Join(SourceDir, name))
}

// Items lists the components in the index.
func (c *Catalog) Items() ([]Item, error) {
	raw, err := c.Index()
	if err != nil {
		return nil, err
	}
	var ix Index
	if err := json.Unmarshal(raw, &ix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return ix.Items, nil
}

// Invalidate drops every cached document.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	n := len(c.cache)
	c.cache = make(map[string][]byte)
	c.mu.Unlock()
	c.logger.Debug().Int("entries", n).Msg("cache invalidated")
}

func (c *Catalog) readJSON(name string) (json.RawMessage, error) {
	data, err := c.read(c.public, "pub:"+name, name)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		c.forget("pub:" + name)
		return nil, fmt.Errorf("%w: %s", ErrInvalid, name)
	}
	return json.RawMessage(data), nil
}

func (c *Catalog) read(fsys fs.FS, key, name string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = data
	c.mu.Unlock()
	return data, nil
}

func (c *Catalog) forget(key string) {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}
