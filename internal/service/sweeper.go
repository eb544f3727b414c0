package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"shortlink-go/internal/repository"
)

// ExpirySweeper 定时将已过期但仍有效的短链置为失效，补充跳转时的惰性失效
type ExpirySweeper struct {
	store     repository.MappingStore
	cache     repository.LinkCache
	batchSize int
	nowFunc   func() time.Time
}

func NewExpirySweeper(store repository.MappingStore, cache repository.LinkCache, batchSize int) *ExpirySweeper {
	if cache == nil {
		cache = repository.NopLinkCache{}
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &ExpirySweeper{
		store:     store,
		cache:     cache,
		batchSize: batchSize,
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
}

// Sweep 分批处理，直到某一批不满或没有可退役的记录
func (s *ExpirySweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.nowFunc()
	var total int64
	for {
		codes, err := s.store.ListExpiredActive(ctx, now, s.batchSize)
		if err != nil {
			return total, err
		}
		if len(codes) == 0 {
			break
		}

		n, err := s.store.RetireExpired(ctx, codes, now)
		if err != nil {
			return total, err
		}
		total += n
		s.cache.Delete(ctx, codes...)

		if len(codes) < s.batchSize || n == 0 {
			break
		}
	}

	zap.L().Info("Expiry sweep finished", zap.Int64("retired", total))
	return total, nil
}
