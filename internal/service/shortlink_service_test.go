package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/suite"

	"shortlink-go/internal/apperrors"
	"shortlink-go/internal/codegen"
	"shortlink-go/internal/dto"
	"shortlink-go/internal/model"
	"shortlink-go/internal/repository"
	"shortlink-go/internal/testutil"
)

type ShortLinkServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *repository.GormMappingStore
	stats   *repository.StatsStore
	cache   *memoryCache
	clicks  *recordingPublisher
	visits  *recordingVisits
	clock   *fakeClock
	domains *DomainPolicy
	svc     *ShortLinkService
	visitor Visitor
}

func (s *ShortLinkServiceSuite) SetupTest() {
	s.ctx = context.Background()
	db := testutil.NewSQLiteDB(s.T())
	s.store = repository.NewGormMappingStore(db)
	s.stats = repository.NewStatsStore(db)
	s.cache = newMemoryCache()
	s.clicks = &recordingPublisher{}
	s.visits = &recordingVisits{}
	s.clock = newFakeClock()
	s.visitor = Visitor{IP: "10.0.0.1", UserAgent: "test-agent"}

	var err error
	s.domains, err = NewDomainPolicy(s.ctx, repository.NewDomainStore(db), []string{"sho.rt"})
	s.Require().NoError(err)

	s.svc = NewShortLinkService(s.deps())
}

func (s *ShortLinkServiceSuite) deps() Deps {
	return Deps{
		Store:        s.store,
		Cache:        s.cache,
		Generator:    codegen.NewRandomGenerator(codegen.DefaultLength),
		Domains:      s.domains,
		Visits:       s.visits,
		Clicks:       s.clicks,
		Stats:        s.stats,
		BaseURL:      "https://sho.rt/",
		RetryBackoff: time.Millisecond,
		NowFunc:      s.clock.Now,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func (s *ShortLinkServiceSuite) shorten(owner, url string, maxClicks, minutes *int64) *dto.ShortenResponse {
	resp, err := s.svc.Shorten(s.ctx, owner, dto.ShortenRequest{
		URL:                     url,
		MaxClicks:               maxClicks,
		ExpirationTimeInMinutes: minutes,
	})
	s.Require().NoError(err)
	return resp
}

func (s *ShortLinkServiceSuite) assertReason(err error, reason string) {
	s.Require().Error(err)
	s.Equal(reason, apperrors.ReasonOf(err))
}

func (s *ShortLinkServiceSuite) TestShortenThenResolveRoundTrip() {
	target := gofakeit.URL() + "/path?q=1#frag"
	resp := s.shorten("alice", target, nil, nil)

	s.Equal(target, resp.URL)
	s.Len(resp.ShortCode, codegen.DefaultLength)
	s.True(codegen.IsValid(resp.ShortCode))
	s.Equal("https://sho.rt/"+resp.ShortCode, resp.ShortURL)
	s.Nil(resp.ExpiresAt)

	got, err := s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.Require().NoError(err)
	s.Equal(target, got)

	link, err := s.store.Get(s.ctx, resp.ShortCode)
	s.Require().NoError(err)
	s.EqualValues(1, link.ClickCount)
	s.Equal([]string{resp.ShortCode + "@10.0.0.1"}, s.visits.visits)
	s.Eventually(func() bool { return s.clicks.count() == 1 }, time.Second, 5*time.Millisecond)
}

func (s *ShortLinkServiceSuite) TestShortenSetsExpiry() {
	resp := s.shorten("alice", "https://example.com/a", nil, int64Ptr(30))
	s.Require().NotNil(resp.ExpiresAt)
	s.True(resp.ExpiresAt.Equal(s.clock.Now().Add(30 * time.Minute)))
}

func (s *ShortLinkServiceSuite) TestShortenValidation() {
	tests := []struct {
		name string
		req  dto.ShortenRequest
		msg  string
	}{
		{name: "empty url", req: dto.ShortenRequest{}, msg: "error.target_url_required"},
		{name: "relative url", req: dto.ShortenRequest{URL: "/a/b"}, msg: "error.target_url_invalid"},
		{name: "ftp", req: dto.ShortenRequest{URL: "ftp://example.com"}, msg: "error.target_url_scheme"},
		{name: "zero clicks", req: dto.ShortenRequest{URL: "https://example.com", MaxClicks: int64Ptr(0)}, msg: "error.max_clicks_invalid"},
		{name: "negative expiry", req: dto.ShortenRequest{URL: "https://example.com", ExpirationTimeInMinutes: int64Ptr(-5)}, msg: "error.expiration_invalid"},
		{name: "expiry too far", req: dto.ShortenRequest{URL: "https://example.com", ExpirationTimeInMinutes: int64Ptr(MaxExpirationMinutes + 1)}, msg: "error.expiration_invalid"},
		{name: "own domain", req: dto.ShortenRequest{URL: "https://sho.rt/abc1234"}, msg: "error.target_domain_blocked"},
		{name: "own subdomain", req: dto.ShortenRequest{URL: "https://www.sho.rt/x"}, msg: "error.target_domain_blocked"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Shorten(s.ctx, "alice", tt.req)
			s.assertReason(err, apperrors.ReasonValidation)
			s.EqualError(err, tt.msg)
		})
	}
}

func (s *ShortLinkServiceSuite) TestConcurrentShortenYieldsUniqueCodes() {
	const n = 40
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.svc.Shorten(s.ctx, "alice", dto.ShortenRequest{URL: "https://example.com/x"})
			if err == nil {
				codes[i] = resp.ShortCode
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, code := range codes {
		s.Require().NotEmpty(code)
		_, dup := seen[code]
		s.False(dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}

func (s *ShortLinkServiceSuite) TestCollisionRetriesWithFreshCode() {
	existing := s.shorten("alice", "https://example.com/first", nil, nil)

	deps := s.deps()
	deps.Generator = &sequenceGenerator{codes: []string{existing.ShortCode, "Fresh12"}}
	svc := NewShortLinkService(deps)

	resp, err := svc.Shorten(s.ctx, "bob", dto.ShortenRequest{URL: "https://example.com/second"})
	s.Require().NoError(err)
	s.Equal("Fresh12", resp.ShortCode)

	first, err := svc.Resolve(s.ctx, existing.ShortCode, s.visitor)
	s.Require().NoError(err)
	s.Equal("https://example.com/first", first)
}

func (s *ShortLinkServiceSuite) TestGenerationExhausted() {
	existing := s.shorten("alice", "https://example.com/first", nil, nil)

	deps := s.deps()
	deps.Generator = &sequenceGenerator{codes: []string{existing.ShortCode}}
	svc := NewShortLinkService(deps)

	_, err := svc.Shorten(s.ctx, "bob", dto.ShortenRequest{URL: "https://example.com/second"})
	s.assertReason(err, apperrors.ReasonInternal)
	s.ErrorIs(err, codegen.ErrGenerationExhausted)
}

func (s *ShortLinkServiceSuite) TestMaxClicksOneScenario() {
	resp := s.shorten("alice", "https://example.com/a", int64Ptr(1), nil)

	got, err := s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.Require().NoError(err)
	s.Equal("https://example.com/a", got)

	_, err = s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.assertReason(err, apperrors.ReasonQuotaExceeded)

	cached, ok := s.cache.Get(s.ctx, resp.ShortCode)
	s.Require().True(ok)
	s.Equal(model.RetiredReasonQuota, cached.Gone)
}

func (s *ShortLinkServiceSuite) TestConcurrentResolveHonoursQuota() {
	const quota = 5
	resp := s.shorten("alice", "https://example.com/hot", int64Ptr(quota), nil)

	var ok, exceeded, other int64
	var wg sync.WaitGroup
	for i := 0; i < quota*10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case apperrors.ReasonOf(err) == apperrors.ReasonQuotaExceeded:
				atomic.AddInt64(&exceeded, 1)
			default:
				atomic.AddInt64(&other, 1)
			}
		}()
	}
	wg.Wait()

	s.EqualValues(quota, ok)
	s.EqualValues(quota*9, exceeded)
	s.Zero(other)

	link, err := s.store.Get(s.ctx, resp.ShortCode)
	s.Require().NoError(err)
	s.EqualValues(quota, link.ClickCount)
	s.False(link.Active)
}

func (s *ShortLinkServiceSuite) TestExpiredNeverResolves() {
	resp := s.shorten("alice", "https://example.com/a", nil, int64Ptr(1))

	_, err := s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Minute)
	target, err := s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.assertReason(err, apperrors.ReasonExpired)
	s.Empty(target)

	link, err := s.store.Get(s.ctx, resp.ShortCode)
	s.Require().NoError(err)
	s.False(link.Active)
	s.Equal(model.RetiredReasonExpired, link.RetiredReason)
	s.EqualValues(1, link.ClickCount)

	// 缓存被清空后仍判定为过期
	s.cache.Delete(s.ctx, resp.ShortCode)
	_, err = s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.assertReason(err, apperrors.ReasonExpired)
}

func (s *ShortLinkServiceSuite) TestResolveUnknownAndMalformed() {
	_, err := s.svc.Resolve(s.ctx, "Nope123", s.visitor)
	s.assertReason(err, apperrors.ReasonNotFound)

	cached, ok := s.cache.Get(s.ctx, "Nope123")
	s.Require().True(ok)
	s.Equal(repository.GoneNotFound, cached.Gone)

	_, err = s.svc.Resolve(s.ctx, "bad/code", s.visitor)
	s.assertReason(err, apperrors.ReasonNotFound)
}

func (s *ShortLinkServiceSuite) TestShortenClearsNegativeCache() {
	s.cache.Set(s.ctx, "Fresh12", &repository.CachedLink{Gone: repository.GoneNotFound})

	deps := s.deps()
	deps.Generator = &sequenceGenerator{codes: []string{"Fresh12"}}
	svc := NewShortLinkService(deps)
	_, err := svc.Shorten(s.ctx, "alice", dto.ShortenRequest{URL: "https://example.com/new"})
	s.Require().NoError(err)

	got, err := svc.Resolve(s.ctx, "Fresh12", s.visitor)
	s.Require().NoError(err)
	s.Equal("https://example.com/new", got)
}

func (s *ShortLinkServiceSuite) TestDeleteByNonOwnerIsForbidden() {
	resp := s.shorten("alice", "https://example.com/a", nil, nil)

	err := s.svc.Delete(s.ctx, "mallory", resp.ShortCode)
	s.assertReason(err, apperrors.ReasonForbidden)

	got, err := s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.Require().NoError(err)
	s.Equal("https://example.com/a", got)
}

func (s *ShortLinkServiceSuite) TestDeleteByOwner() {
	resp := s.shorten("alice", "https://example.com/a", nil, nil)
	_, err := s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, "alice", resp.ShortCode))

	_, err = s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.assertReason(err, apperrors.ReasonNotFound)

	// 再次删除视为不存在
	s.assertReason(s.svc.Delete(s.ctx, "alice", resp.ShortCode), apperrors.ReasonNotFound)

	// 已删除的短码不会再次分配
	deps := s.deps()
	deps.Generator = &sequenceGenerator{codes: []string{resp.ShortCode, "Other12"}}
	again, err := NewShortLinkService(deps).Shorten(s.ctx, "alice", dto.ShortenRequest{URL: "https://example.com/b"})
	s.Require().NoError(err)
	s.Equal("Other12", again.ShortCode)
}

func (s *ShortLinkServiceSuite) TestDeleteEdgeCases() {
	s.assertReason(s.svc.Delete(s.ctx, "", "abc1234"), apperrors.ReasonUnauthorized)
	s.assertReason(s.svc.Delete(s.ctx, "alice", "Missing"), apperrors.ReasonNotFound)

	anon := s.shorten("", "https://example.com/anon", nil, nil)
	s.assertReason(s.svc.Delete(s.ctx, "alice", anon.ShortCode), apperrors.ReasonForbidden)
}

func (s *ShortLinkServiceSuite) TestListMine() {
	first := s.shorten("alice", "https://example.com/1", nil, nil)
	s.clock.Advance(time.Second)
	second := s.shorten("alice", "https://example.com/2", nil, nil)
	s.clock.Advance(time.Second)
	deleted := s.shorten("alice", "https://example.com/3", nil, nil)
	s.shorten("bob", "https://example.com/bob", nil, nil)
	s.shorten("", "https://example.com/anon", nil, nil)
	s.Require().NoError(s.svc.Delete(s.ctx, "alice", deleted.ShortCode))

	page, err := s.svc.ListMine(s.ctx, "alice", 1, 0)
	s.Require().NoError(err)
	s.EqualValues(2, page.Total)
	s.Require().Len(page.List, 2)
	s.Equal(second.ShortCode, page.List[0].ShortCode)
	s.Equal(first.ShortCode, page.List[1].ShortCode)
	s.Equal("https://sho.rt/"+first.ShortCode, page.List[1].ShortURL)

	paged, err := s.svc.ListMine(s.ctx, "alice", 2, 1)
	s.Require().NoError(err)
	s.Equal(2, paged.TotalPage)
	s.Require().Len(paged.List, 1)
	s.Equal(first.ShortCode, paged.List[0].ShortCode)

	_, err = s.svc.ListMine(s.ctx, "", 1, 0)
	s.assertReason(err, apperrors.ReasonUnauthorized)
}

func (s *ShortLinkServiceSuite) TestStats() {
	resp := s.shorten("alice", "https://example.com/a", int64Ptr(10), nil)
	_, err := s.svc.Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.Require().NoError(err)

	link, err := s.store.Get(s.ctx, resp.ShortCode)
	s.Require().NoError(err)
	s.Require().NoError(s.stats.UpsertDailyStat(s.ctx, &model.DailyStat{ShortLinkID: link.ID, Date: "2026-10-17", PV: 1, UV: 1}))

	stats, err := s.svc.Stats(s.ctx, "alice", resp.ShortCode)
	s.Require().NoError(err)
	s.EqualValues(1, stats.ClickCount)
	s.Require().Len(stats.Daily, 1)
	s.Equal("2026-10-17", stats.Daily[0].Date)

	_, err = s.svc.Stats(s.ctx, "bob", resp.ShortCode)
	s.assertReason(err, apperrors.ReasonForbidden)
}

func (s *ShortLinkServiceSuite) TestUnavailableIsRetriedOnce() {
	resp := s.shorten("alice", "https://example.com/a", nil, nil)

	deps := s.deps()
	deps.Cache = newMemoryCache()
	flaky := &flakyStore{MappingStore: s.store, failures: 1}
	deps.Store = flaky
	got, err := NewShortLinkService(deps).Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.Require().NoError(err)
	s.Equal("https://example.com/a", got)

	deps.Cache = newMemoryCache()
	deps.Store = &flakyStore{MappingStore: s.store, failures: 2}
	_, err = NewShortLinkService(deps).Resolve(s.ctx, resp.ShortCode, s.visitor)
	s.assertReason(err, apperrors.ReasonUnavailable)
	s.ErrorIs(err, repository.ErrUnavailable)
}

func TestShortLinkServiceSuite(t *testing.T) {
	suite.Run(t, new(ShortLinkServiceSuite))
}
