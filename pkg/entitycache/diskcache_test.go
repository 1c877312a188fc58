package entitycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
)

func testConfiguration() *entitymodel.Configuration {
	cfg := entitymodel.NewConfiguration()
	cfg.Descriptor = entitymodel.ConfigurationDescriptor{
		ObjectName: entitymodel.NewAvdeccFixedString("default"),
		DescriptorCounts: map[entitymodel.DescriptorType]uint16{
			entitymodel.DescriptorAudioUnit: 1,
		},
	}
	cfg.AudioUnits[0] = &entitymodel.AudioUnitDescriptor{ObjectName: entitymodel.NewAvdeccFixedString("unit0")}
	return cfg
}

func TestEntityModelCacheDisabledByDefault(t *testing.T) {
	m, err := NewEntityModelCache(t.TempDir())
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	require.NoError(t, m.Store(1, 0, testConfiguration()))
	_, ok := m.Load(1, 0)
	assert.False(t, ok, "a disabled cache must not persist or serve entries")
}

func TestEntityModelCacheStoreLoadRoundTrip(t *testing.T) {
	m, err := NewEntityModelCache(t.TempDir())
	require.NoError(t, err)
	m.Enable()

	cfg := testConfiguration()
	require.NoError(t, m.Store(0x001B21FFFE000001, 0, cfg))

	loaded, ok := m.Load(0x001B21FFFE000001, 0)
	require.True(t, ok)
	assert.Equal(t, "unit0", loaded.AudioUnits[0].ObjectName.String())
	assert.Equal(t, cfg.Descriptor.DescriptorCounts, loaded.Descriptor.DescriptorCounts)
}

func TestEntityModelCacheDisableStopsServingButKeepsFiles(t *testing.T) {
	dir := t.TempDir()
	m, err := NewEntityModelCache(dir)
	require.NoError(t, err)
	m.Enable()

	require.NoError(t, m.Store(2, 0, testConfiguration()))
	m.Disable()

	_, ok := m.Load(2, 0)
	assert.False(t, ok)

	// The file itself still exists on disk.
	assert.FileExists(t, m.path(2, 0))
}

func TestEntityModelCacheSeedAdaptsLoad(t *testing.T) {
	m, err := NewEntityModelCache(t.TempDir())
	require.NoError(t, err)
	m.Enable()
	require.NoError(t, m.Store(3, 1, testConfiguration()))

	cfg, ok := m.Seed(3, 1)
	require.True(t, ok)
	assert.Equal(t, "unit0", cfg.AudioUnits[0].ObjectName.String())

	_, ok = m.Seed(3, 2)
	assert.False(t, ok)
}

func TestEntityModelCacheLoadMissingReturnsFalse(t *testing.T) {
	m, err := NewEntityModelCache(t.TempDir())
	require.NoError(t, err)
	m.Enable()

	_, ok := m.Load(999, 0)
	assert.False(t, ok)
}
