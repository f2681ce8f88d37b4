package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory es el backend in-process, respaldado por go-cache.
type Memory struct {
	c      *gocache.Cache
	prefix string
}

// NewMemory crea un cache en memoria con el TTL por defecto de cfg.
func NewMemory(cfg Config) *Memory {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Memory{
		c:      gocache.New(ttl, time.Minute),
		prefix: cfg.Prefix,
	}
}

func (m *Memory) key(k string) string { return m.prefix + k }

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(m.key(key), value, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.c.Get(m.key(key))
	return ok, nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}
