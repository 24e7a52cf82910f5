// Package settings is the typed viewer configuration provider. Values are
// persisted through a store.Store and fall back to defaults when unset.
package settings

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jaennil/guide_helper/backend/viewer/internal/repository/store"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
)

type Key string

const (
	RasterTimeToLive      Key = "rasterTimeToLive"
	RasterRetryDelay      Key = "rasterRetryDelay"
	ForegroundZ           Key = "foregroundZ"
	LastKnownX            Key = "lastKnownX"
	LastKnownY            Key = "lastKnownY"
	LastKnownZ            Key = "lastKnownZ"
	BackgroundOpacity     Key = "backgroundOpacity"
	ForegroundOpacity     Key = "foregroundOpacity"
	BackgroundDownscaling Key = "backgroundDownscaling"
	ForegroundDownscaling Key = "foregroundDownscaling"
)

var (
	ErrUnknownKey = errors.New("unknown settings key")
	ErrNotInteger = errors.New("value is not an integer")
	ErrOutOfRange = errors.New("value is out of range")
)

type entry struct {
	def   float64
	codec codec
}

var entries = map[Key]entry{
	RasterTimeToLive:      {def: 10000, codec: intCodec{}},
	RasterRetryDelay:      {def: 1000, codec: intCodec{}},
	ForegroundZ:           {def: 8, codec: floatCodec{}},
	LastKnownX:            {def: 0.5, codec: floatCodec{}},
	LastKnownY:            {def: 0.5, codec: floatCodec{}},
	LastKnownZ:            {def: 0, codec: floatCodec{}},
	BackgroundOpacity:     {def: 255, codec: octetCodec{}},
	ForegroundOpacity:     {def: 255, codec: octetCodec{}},
	BackgroundDownscaling: {def: 0, codec: boundedIntCodec{lo: 0, hi: 9}},
	ForegroundDownscaling: {def: 0, codec: boundedIntCodec{lo: 0, hi: 9}},
}

// Provider reads and writes viewer settings. Get never fails: unset or
// unreadable values yield the key's default.
type Provider interface {
	Get(key Key) float64
	Set(key Key, value float64) error
	Clear(key Key) error
}

// Int reads key from p as an integer.
func Int(p Provider, key Key) int {
	return int(p.Get(key))
}

// Float reads key from p as a float.
func Float(p Provider, key Key) float64 {
	return p.Get(key)
}

// Keys lists every known key in a stable order.
func Keys() []Key {
	keys := make([]Key, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func ParseKey(s string) (Key, error) {
	k := Key(s)
	if _, ok := entries[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
	return k, nil
}

func Default(key Key) float64 {
	return entries[key].def
}

// Settings keeps an in-memory copy of every value it has read or written, so
// only the first Get of a key reaches the store.
type Settings struct {
	store  store.Store
	logger logger.Logger

	mu     sync.RWMutex
	values map[Key]float64
}

var _ Provider = (*Settings)(nil)

func New(s store.Store, l logger.Logger) *Settings {
	return &Settings{
		store:  s,
		logger: l,
		values: make(map[Key]float64),
	}
}

func namespaced(key Key) string {
	return "__cfg_" + string(key)
}

func (s *Settings) Get(key Key) float64 {
	e, ok := entries[key]
	if !ok {
		panic(fmt.Sprintf("settings: unknown key %q", key))
	}

	s.mu.RLock()
	v, cached := s.values[key]
	s.mu.RUnlock()
	if cached {
		return v
	}

	v = s.load(key, e)

	// A Set that raced with the load wins.
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.values[key]; ok {
		return current
	}
	s.values[key] = v
	return v
}

func (s *Settings) remember(key Key, v float64) {
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
}

func (s *Settings) forget(key Key) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

func (s *Settings) load(key Key, e entry) float64 {
	raw, exists, err := s.store.Get(namespaced(key))
	if err != nil {
		s.logger.Warn("failed to read setting, using default", "key", key, "error", err)
		return e.def
	}
	if !exists {
		return e.def
	}

	v, err := e.codec.deserialize(raw)
	if err != nil {
		s.logger.Warn("failed to decode setting, using default", "key", key, "value", raw, "error", err)
		return e.def
	}
	return v
}

func (s *Settings) Set(key Key, value float64) error {
	e, ok := entries[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	raw, err := e.codec.serialize(value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	if err := s.store.Set(namespaced(key), raw); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	s.remember(key, value)
	return nil
}

func (s *Settings) Clear(key Key) error {
	if _, ok := entries[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err := s.store.Delete(namespaced(key)); err != nil {
		return fmt.Errorf("failed to clear setting %s: %w", key, err)
	}
	s.forget(key)
	return nil
}
