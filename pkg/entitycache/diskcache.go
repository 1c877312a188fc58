package entitycache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
)

// modelCacheEncMode/modelCacheDecMode are the canonical CBOR
// configuration of the on-disk model cache: deterministic map-key
// ordering on encode, quiet handling of duplicate keys on decode.
var (
	modelCacheEncMode cbor.EncMode
	modelCacheDecMode cbor.DecMode
)

func init() {
	var err error
	modelCacheEncMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("entitycache: building CBOR encode mode: %v", err))
	}
	modelCacheDecMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("entitycache: building CBOR decode mode: %v", err))
	}
}

// EntityModelCache is an opt-in on-disk side cache of previously
// enumerated static descriptor trees, keyed by (entityModelID,
// configIndex): entities sharing the same model (the common case for
// two units of the same product) reuse one snapshot. Disabled by
// default; a disabled cache's Load always misses and its Store is a
// no-op, so enabling/disabling never needs to touch in-flight
// enumerations.
type EntityModelCache struct {
	dir string

	mu      sync.RWMutex
	enabled bool
}

// NewEntityModelCache creates a cache rooted at dir, creating the
// directory if necessary. The cache starts disabled.
func NewEntityModelCache(dir string) (*EntityModelCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("entitycache: creating model cache dir: %w", err)
	}
	return &EntityModelCache{dir: dir}, nil
}

// Enable turns the cache on: subsequent Store calls persist, and Load
// calls consult disk.
func (c *EntityModelCache) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// Disable turns the cache off without discarding previously persisted
// entries; they are simply not consulted.
func (c *EntityModelCache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// Enabled reports the cache's current on/off state.
func (c *EntityModelCache) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

func (c *EntityModelCache) path(entityModelID uint64, configIndex entitymodel.DescriptorIndex) string {
	return filepath.Join(c.dir, fmt.Sprintf("%016x-%d.cbor", entityModelID, configIndex))
}

// Store persists cfg under (entityModelID, configIndex). A no-op when
// the cache is disabled.
func (c *EntityModelCache) Store(entityModelID uint64, configIndex entitymodel.DescriptorIndex, cfg *entitymodel.Configuration) error {
	if !c.Enabled() {
		return nil
	}
	data, err := modelCacheEncMode.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("entitycache: encoding model snapshot: %w", err)
	}
	if err := os.WriteFile(c.path(entityModelID, configIndex), data, 0o600); err != nil {
		return fmt.Errorf("entitycache: writing model snapshot: %w", err)
	}
	return nil
}

// Load returns a previously stored snapshot for (entityModelID,
// configIndex), if the cache is enabled and one exists.
func (c *EntityModelCache) Load(entityModelID uint64, configIndex entitymodel.DescriptorIndex) (*entitymodel.Configuration, bool) {
	if !c.Enabled() {
		return nil, false
	}
	data, err := os.ReadFile(c.path(entityModelID, configIndex))
	if err != nil {
		return nil, false
	}
	cfg := entitymodel.NewConfiguration()
	if err := modelCacheDecMode.Unmarshal(data, cfg); err != nil {
		return nil, false
	}
	return cfg, true
}

// Seed adapts Load to enum.SeedFunc.
func (c *EntityModelCache) Seed(entityModelID uint64, configIndex entitymodel.DescriptorIndex) (*entitymodel.Configuration, bool) {
	return c.Load(entityModelID, configIndex)
}
