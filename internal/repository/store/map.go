package store

import "sync"

type MapStore struct {
	m *TypedSyncMap
}

type TypedSyncMap struct {
	m sync.Map
}

func (c *TypedSyncMap) Load(k string) (string, bool) {
	v, exists := c.m.Load(k)
	if !exists {
		return "", false
	}
	return v.(string), exists
}

func (c *TypedSyncMap) Store(k, v string) {
	c.m.Store(k, v)
}

func (c *TypedSyncMap) Delete(k string) {
	c.m.Delete(k)
}

func NewMapStore() *MapStore {
	return &MapStore{
		m: &TypedSyncMap{},
	}
}

var _ Store = (*MapStore)(nil)

func (s *MapStore) Get(k string) (string, bool, error) {
	v, exists := s.m.Load(k)
	return v, exists, nil
}

func (s *MapStore) Set(k, v string) error {
	s.m.Store(k, v)
	return nil
}

func (s *MapStore) Delete(k string) error {
	s.m.Delete(k)
	return nil
}
