package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"shortlink-go/internal/access"
	"shortlink-go/internal/apperrors"
	"shortlink-go/internal/codegen"
	"shortlink-go/internal/dto"
	"shortlink-go/internal/events"
	"shortlink-go/internal/model"
	"shortlink-go/internal/repository"
	"shortlink-go/pkg/utils"
	"shortlink-go/response"
)

const (
	MaxExpirationMinutes = 525600 * 10
	MaxClicksLimit       = 1000000000
	statsDays            = 30
	publishTimeout       = 3 * time.Second
)

// Visitor 跳转请求方信息，用于统计与点击事件
type Visitor struct {
	IP        string
	UserAgent string
}

// DailyStatsReader 读取按日统计
type DailyStatsReader interface {
	ListDailyStats(ctx context.Context, shortLinkID uint, days int) ([]model.DailyStat, error)
}

// Deps ShortLinkService 的依赖；除 Store 外均可为空
type Deps struct {
	Store        repository.MappingStore
	Cache        repository.LinkCache
	Generator    codegen.Generator
	Domains      *DomainPolicy
	Visits       VisitRecorder
	Clicks       events.ClickPublisher
	Stats        DailyStatsReader
	BaseURL      string
	MaxAttempts  int
	RetryBackoff time.Duration
	NowFunc      func() time.Time
}

type ShortLinkService struct {
	store        repository.MappingStore
	cache        repository.LinkCache
	gen          codegen.Generator
	domains      *DomainPolicy
	visits       VisitRecorder
	clicks       events.ClickPublisher
	stats        DailyStatsReader
	baseURL      string
	maxAttempts  int
	retryBackoff time.Duration
	now          func() time.Time
}

func NewShortLinkService(d Deps) *ShortLinkService {
	s := &ShortLinkService{
		store:        d.Store,
		cache:        d.Cache,
		gen:          d.Generator,
		domains:      d.Domains,
		visits:       d.Visits,
		clicks:       d.Clicks,
		stats:        d.Stats,
		baseURL:      d.BaseURL,
		maxAttempts:  d.MaxAttempts,
		retryBackoff: d.RetryBackoff,
		now:          d.NowFunc,
	}
	if s.cache == nil {
		s.cache = repository.NopLinkCache{}
	}
	if s.gen == nil {
		s.gen = codegen.NewRandomGenerator(codegen.DefaultLength)
	}
	if s.visits == nil {
		s.visits = nopVisitRecorder{}
	}
	if s.clicks == nil {
		s.clicks = events.NopClickPublisher{}
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = codegen.DefaultMaxAttempts
	}
	if s.retryBackoff <= 0 {
		s.retryBackoff = 50 * time.Millisecond
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	for len(s.baseURL) > 0 && s.baseURL[len(s.baseURL)-1] == '/' {
		s.baseURL = s.baseURL[:len(s.baseURL)-1]
	}
	return s
}

// Shorten 创建短链；ownerID 为空表示匿名创建
func (s *ShortLinkService) Shorten(ctx context.Context, ownerID string, req dto.ShortenRequest) (*dto.ShortenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.InvalidRequestError(err.Error())
	}
	if req.MaxClicks != nil && (*req.MaxClicks < 1 || *req.MaxClicks > MaxClicksLimit) {
		return nil, apperrors.InvalidRequestError("error.max_clicks_invalid")
	}
	if req.ExpirationTimeInMinutes != nil &&
		(*req.ExpirationTimeInMinutes < 1 || *req.ExpirationTimeInMinutes > MaxExpirationMinutes) {
		return nil, apperrors.InvalidRequestError("error.expiration_invalid")
	}
	if s.domains.IsBlocked(utils.HostOf(req.URL)) {
		return nil, apperrors.InvalidRequestError("error.target_domain_blocked")
	}

	now := s.now()
	link := &model.ShortLink{
		TargetURL: req.URL,
		MaxClicks: req.MaxClicks,
	}
	link.CreatedAt = now
	link.UpdatedAt = now
	if ownerID != "" {
		owner := ownerID
		link.OwnerID = &owner
	}
	if req.ExpirationTimeInMinutes != nil {
		expiresAt := now.Add(time.Duration(*req.ExpirationTimeInMinutes) * time.Minute)
		link.ExpiresAt = &expiresAt
	}

	code, err := codegen.Claim(ctx, s.gen, s.maxAttempts, func(code string) error {
		link.ID = 0
		link.ShortCode = code
		_, err := withRetry(ctx, s.retryBackoff, func() (struct{}, error) {
			return struct{}{}, s.store.Create(ctx, link)
		})
		return err
	}, repository.IsCodeCollision)
	if err != nil {
		if errors.Is(err, codegen.ErrGenerationExhausted) {
			return nil, apperrors.SystemErrorDefault().WithCause(err)
		}
		return nil, storeError(err)
	}

	// 清理该短码可能存在的负缓存
	s.cache.Delete(ctx, code)

	zap.L().Info("Short link created",
		zap.String("short_code", code),
		zap.Bool("anonymous", ownerID == ""),
	)
	resp := dto.NewShortenResponse(link, s.baseURL)
	return &resp, nil
}

// Resolve 跳转读路径：返回目标地址，或 NotFound / Expired / QuotaExceeded / Unavailable
func (s *ShortLinkService) Resolve(ctx context.Context, shortCode string, visitor Visitor) (string, error) {
	if !codegen.IsValid(shortCode) {
		return "", apperrors.NotFoundError()
	}
	now := s.now()

	if cached, ok := s.cache.Get(ctx, shortCode); ok {
		if err := EnforceCached(cached, now); err != nil {
			if cached.Gone == "" {
				s.retireExpired(ctx, shortCode, now)
			}
			return "", err
		}
	} else {
		link, err := withRetry(ctx, s.retryBackoff, func() (*model.ShortLink, error) {
			return s.store.Get(ctx, shortCode)
		})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.cache.Set(ctx, shortCode, &repository.CachedLink{Gone: repository.GoneNotFound})
				return "", apperrors.NotFoundError()
			}
			return "", storeError(err)
		}
		if err := s.gate(ctx, link, now); err != nil {
			return "", err
		}
		s.cache.Set(ctx, shortCode, repository.CachedFromLink(link))
	}

	// 计数与配额判断由存储层单条语句原子完成
	link, err := withRetry(ctx, s.retryBackoff, func() (*model.ShortLink, error) {
		return s.store.IncrementClickIfAllowed(ctx, shortCode, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInactive) && link != nil:
			if gateErr := s.gate(ctx, link, now); gateErr != nil {
				return "", gateErr
			}
			return "", apperrors.NotFoundError()
		case errors.Is(err, repository.ErrNotFound):
			s.cache.Delete(ctx, shortCode)
			return "", apperrors.NotFoundError()
		default:
			return "", storeError(err)
		}
	}

	if !link.Active {
		s.cache.Set(ctx, shortCode, repository.CachedFromLink(link))
	}
	s.recordClick(ctx, link, visitor, now)
	return link.TargetURL, nil
}

// gate 执行有效性检查；已过期但仍标记为有效的短链在此惰性失效，终态写入缓存
func (s *ShortLinkService) gate(ctx context.Context, link *model.ShortLink, now time.Time) error {
	err := EnforceLink(link, now)
	if err == nil {
		return nil
	}
	if link.Active && link.IsExpiredAt(now) {
		s.retireExpired(ctx, link.ShortCode, now)
	} else if !link.Active {
		s.cache.Set(ctx, link.ShortCode, repository.CachedFromLink(link))
	}
	return err
}

func (s *ShortLinkService) retireExpired(ctx context.Context, shortCode string, now time.Time) {
	retired, err := s.store.Retire(ctx, shortCode, model.RetiredReasonExpired, now)
	if err != nil {
		zap.L().Warn("Lazy retire failed", zap.String("short_code", shortCode), zap.Error(err))
		s.cache.Delete(ctx, shortCode)
		return
	}
	if retired {
		zap.L().Info("Short link expired", zap.String("short_code", shortCode))
	}
	s.cache.Set(ctx, shortCode, &repository.CachedLink{Gone: model.RetiredReasonExpired})
}

// recordClick 统计与事件均为尽力而为，不受请求取消影响
func (s *ShortLinkService) recordClick(ctx context.Context, link *model.ShortLink, visitor Visitor, now time.Time) {
	bg := context.WithoutCancel(ctx)
	s.visits.RecordVisit(bg, link.ShortCode, visitor.IP, now)

	event := events.NewClickEvent(link.ShortCode, visitor.UserAgent, visitor.IP, now)
	go func() {
		pubCtx, cancel := context.WithTimeout(bg, publishTimeout)
		defer cancel()
		if err := s.clicks.PublishClick(pubCtx, event); err != nil {
			zap.L().Warn("Failed to publish click event",
				zap.String("short_code", event.ShortCode),
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}()
}

// Delete 所有者删除短链（墓碑），短码不会被再次分配
func (s *ShortLinkService) Delete(ctx context.Context, requesterID, shortCode string) error {
	if requesterID == "" {
		return apperrors.UnauthorizedError()
	}
	if !codegen.IsValid(shortCode) {
		return apperrors.NotFoundError()
	}

	link, err := s.getLink(ctx, shortCode)
	if err != nil {
		return err
	}
	if err := access.Authorize(requesterID, link, access.ActionDelete); err != nil {
		return accessError(err)
	}
	if link.RetiredReason == model.RetiredReasonDeleted {
		return apperrors.NotFoundError()
	}

	_, err = withRetry(ctx, s.retryBackoff, func() (struct{}, error) {
		return struct{}{}, s.store.Deactivate(ctx, shortCode, requesterID, s.now())
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFoundError()
	case errors.Is(err, repository.ErrForbidden):
		return apperrors.ForbiddenError()
	default:
		return storeError(err)
	}

	s.cache.Delete(ctx, shortCode)
	zap.L().Info("Short link deleted", zap.String("short_code", shortCode))
	return nil
}

// ListMine 列出本人的短链，按创建时间倒序；size <= 0 返回全部
func (s *ShortLinkService) ListMine(ctx context.Context, requesterID string, page, size int) (*response.PageResponse[dto.ShortenResponse], error) {
	if err := access.Authorize(requesterID, nil, access.ActionList); err != nil {
		return nil, accessError(err)
	}
	if page < 1 {
		page = 1
	}

	links, total, err := withRetry3(ctx, s.retryBackoff, func() ([]model.ShortLink, int64, error) {
		return s.store.ListByOwner(ctx, requesterID, page, size)
	})
	if err != nil {
		return nil, storeError(err)
	}

	list := make([]dto.ShortenResponse, 0, len(links))
	for i := range links {
		list = append(list, dto.NewShortenResponse(&links[i], s.baseURL))
	}
	return response.NewPage(list, page, size, total), nil
}

// Stats 短链统计，仅所有者可见
func (s *ShortLinkService) Stats(ctx context.Context, requesterID, shortCode string) (*dto.LinkStatsResponse, error) {
	if requesterID == "" {
		return nil, apperrors.UnauthorizedError()
	}
	if !codegen.IsValid(shortCode) {
		return nil, apperrors.NotFoundError()
	}

	link, err := s.getLink(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(requesterID, link, access.ActionStats); err != nil {
		return nil, accessError(err)
	}
	if link.RetiredReason == model.RetiredReasonDeleted {
		return nil, apperrors.NotFoundError()
	}

	resp := &dto.LinkStatsResponse{
		ShortenResponse: dto.NewShortenResponse(link, s.baseURL),
		RetiredReason:   link.RetiredReason,
		TotalPV:         link.TotalPV,
		TotalUV:         link.TotalUV,
		Daily:           []dto.DailyStatResponse{},
	}
	if s.stats != nil {
		rows, err := s.stats.ListDailyStats(ctx, link.ID, statsDays)
		if err != nil {
			return nil, storeError(err)
		}
		for _, row := range rows {
			resp.Daily = append(resp.Daily, dto.DailyStatResponse{Date: row.Date, PV: row.PV, UV: row.UV})
		}
	}
	return resp, nil
}

func (s *ShortLinkService) getLink(ctx context.Context, shortCode string) (*model.ShortLink, error) {
	link, err := withRetry(ctx, s.retryBackoff, func() (*model.ShortLink, error) {
		return s.store.Get(ctx, shortCode)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFoundError()
		}
		return nil, storeError(err)
	}
	return link, nil
}

func withRetry3[A, B any](ctx context.Context, backoff time.Duration, op func() (A, B, error)) (A, B, error) {
	type pair struct {
		a A
		b B
	}
	p, err := withRetry(ctx, backoff, func() (pair, error) {
		a, b, err := op()
		return pair{a, b}, err
	})
	return p.a, p.b, err
}

func accessError(err error) error {
	if errors.Is(err, access.ErrUnauthenticated) {
		return apperrors.UnauthorizedError()
	}
	return apperrors.ForbiddenError()
}

// storeError 存储层错误转换为对外错误
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperrors.UnavailableError().WithCause(err)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFoundError()
	default:
		return apperrors.SystemErrorDefault().WithCause(err)
	}
}
