package settings

import (
	"testing"

	"github.com/jaennil/guide_helper/backend/viewer/internal/repository/store"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettings() (*Settings, *store.MapStore) {
	s := store.NewMapStore()
	return New(s, logger.NewNoOp()), s
}

func TestSettings_Defaults(t *testing.T) {
	s, _ := newTestSettings()
	assert.Equal(t, 10000.0, s.Get(RasterTimeToLive))
	assert.Equal(t, 1000.0, s.Get(RasterRetryDelay))
	assert.Equal(t, 8.0, s.Get(ForegroundZ))
	assert.Equal(t, 0.5, s.Get(LastKnownX))
	assert.Equal(t, 0.5, s.Get(LastKnownY))
	assert.Equal(t, 0.0, s.Get(LastKnownZ))
	assert.Equal(t, 255, Int(s, BackgroundOpacity))
	assert.Equal(t, 255, Int(s, ForegroundOpacity))
	assert.Equal(t, 0, Int(s, BackgroundDownscaling))
	assert.Equal(t, 0, Int(s, ForegroundDownscaling))
}

func TestSettings_SetGetClear(t *testing.T) {
	s, raw := newTestSettings()

	require.NoError(t, s.Set(LastKnownX, 0.125))
	assert.Equal(t, 0.125, s.Get(LastKnownX))
	v, ok, _ := raw.Get("__cfg_lastKnownX")
	require.True(t, ok)
	assert.Equal(t, "0.125", v)

	require.NoError(t, s.Set(BackgroundOpacity, 128))
	v, _, _ = raw.Get("__cfg_backgroundOpacity")
	assert.Equal(t, "80", v)
	assert.Equal(t, 128.0, s.Get(BackgroundOpacity))

	require.NoError(t, s.Clear(LastKnownX))
	assert.Equal(t, 0.5, s.Get(LastKnownX))
}

func TestSettings_IntegerPrecondition(t *testing.T) {
	s, _ := newTestSettings()

	err := s.Set(RasterTimeToLive, 1.5)
	assert.ErrorIs(t, err, ErrNotInteger)
	assert.Equal(t, 10000.0, s.Get(RasterTimeToLive))

	assert.ErrorIs(t, s.Set(ForegroundOpacity, 256), ErrOutOfRange)
	assert.ErrorIs(t, s.Set(ForegroundOpacity, 2.5), ErrNotInteger)
	assert.NoError(t, s.Set(ForegroundZ, 2.5))
}

func TestSettings_GarbageFallsBackToDefault(t *testing.T) {
	s, raw := newTestSettings()
	require.NoError(t, raw.Set("__cfg_rasterRetryDelay", "soon"))
	assert.Equal(t, 1000.0, s.Get(RasterRetryDelay))
}

func TestSettings_UnknownKey(t *testing.T) {
	s, _ := newTestSettings()
	assert.ErrorIs(t, s.Set("nope", 1), ErrUnknownKey)
	assert.ErrorIs(t, s.Clear("nope"), ErrUnknownKey)
	_, err := ParseKey("nope")
	assert.ErrorIs(t, err, ErrUnknownKey)

	k, err := ParseKey("foregroundZ")
	require.NoError(t, err)
	assert.Equal(t, ForegroundZ, k)
	assert.Len(t, Keys(), 10)
}

func TestSettings_DownscaleRange(t *testing.T) {
	s, raw := newTestSettings()

	assert.ErrorIs(t, s.Set(BackgroundDownscaling, 10), ErrOutOfRange)
	assert.ErrorIs(t, s.Set(ForegroundDownscaling, -1), ErrOutOfRange)
	assert.ErrorIs(t, s.Set(ForegroundDownscaling, 1.5), ErrNotInteger)
	require.NoError(t, s.Set(BackgroundDownscaling, 9))
	assert.Equal(t, 9, Int(s, BackgroundDownscaling))

	// a value written behind the provider's back is rejected on read
	require.NoError(t, raw.Set("__cfg_foregroundDownscaling", "12"))
	assert.Equal(t, 0, Int(s, ForegroundDownscaling))
}

type countingStore struct {
	store.Store
	gets int
}

func (c *countingStore) Get(k string) (string, bool, error) {
	c.gets++
	return c.Store.Get(k)
}

func TestSettings_ReadsStoreOnce(t *testing.T) {
	backing := &countingStore{Store: store.NewMapStore()}
	require.NoError(t, backing.Set("__cfg_foregroundZ", "5"))
	s := New(backing, logger.NewNoOp())

	for i := 0; i < 10; i++ {
		assert.Equal(t, 5.0, s.Get(ForegroundZ))
		assert.Equal(t, 10000.0, s.Get(RasterTimeToLive))
	}
	assert.Equal(t, 2, backing.gets)

	require.NoError(t, s.Set(ForegroundZ, 7))
	assert.Equal(t, 7.0, s.Get(ForegroundZ))
	require.NoError(t, s.Clear(ForegroundZ))
	assert.Equal(t, 8.0, s.Get(ForegroundZ))
	assert.Equal(t, 3, backing.gets)
}
