package service

import (
	"context"
	"sync"
	"time"

	"shortlink-go/internal/events"
	"shortlink-go/internal/model"
	"shortlink-go/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memoryCache 进程内 LinkCache，用于观察缓存写入
type memoryCache struct {
	mu    sync.Mutex
	items map[string]repository.CachedLink
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]repository.CachedLink)}
}

func (c *memoryCache) Get(_ context.Context, code string) (*repository.CachedLink, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[code]
	if !ok {
		return nil, false
	}
	return &v, true
}

func (c *memoryCache) Set(_ context.Context, code string, link *repository.CachedLink) {
	c.mu.Lock()
	c.items[code] = *link
	c.mu.Unlock()
}

func (c *memoryCache) Delete(_ context.Context, codes ...string) {
	c.mu.Lock()
	for _, code := range codes {
		delete(c.items, code)
	}
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ClickEvent
}

func (p *recordingPublisher) PublishClick(_ context.Context, e events.ClickEvent) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type recordingVisits struct {
	mu     sync.Mutex
	visits []string
}

func (r *recordingVisits) RecordVisit(_ context.Context, code, ip string, _ time.Time) {
	r.mu.Lock()
	r.visits = append(r.visits, code+"@"+ip)
	r.mu.Unlock()
}

// sequenceGenerator 依次返回预设短码
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	i     int
}

func (g *sequenceGenerator) Generate(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[g.i%len(g.codes)]
	g.i++
	return code, nil
}

// flakyStore 前 failures 次 Get/IncrementClickIfAllowed 返回 ErrUnavailable
type flakyStore struct {
	repository.MappingStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakyStore) fail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return true
	}
	return false
}

func (s *flakyStore) Get(ctx context.Context, code string) (*model.ShortLink, error) {
	if s.fail() {
		return nil, repository.ErrUnavailable
	}
	return s.MappingStore.Get(ctx, code)
}

func (s *flakyStore) IncrementClickIfAllowed(ctx context.Context, code string, now time.Time) (*model.ShortLink, error) {
	if s.fail() {
		return nil, repository.ErrUnavailable
	}
	return s.MappingStore.IncrementClickIfAllowed(ctx, code, now)
}
