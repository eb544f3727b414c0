package service

import (
	"time"

	"shortlink-go/internal/apperrors"
	"shortlink-go/internal/model"
	"shortlink-go/internal/repository"
)

// EnforceLink 跳转前的有效性检查：已删除 > 已过期 > 配额用尽 > 其他失效原因
// 最终以数据库原子自增为准，这里只是基于快照的快速拦截
func EnforceLink(link *model.ShortLink, now time.Time) error {
	if link.RetiredReason == model.RetiredReasonDeleted {
		return apperrors.NotFoundError()
	}
	if link.IsExpiredAt(now) {
		return apperrors.ExpiredError()
	}
	if link.QuotaReached() {
		return apperrors.QuotaExceededError()
	}
	if !link.Active {
		return goneError(link.RetiredReason)
	}
	return nil
}

// EnforceCached 基于缓存项的检查；缓存不含点击数，配额由自增语句判定
func EnforceCached(link *repository.CachedLink, now time.Time) error {
	if link.Gone != "" {
		return goneError(link.Gone)
	}
	if link.ExpiresAt != nil && !now.Before(*link.ExpiresAt) {
		return apperrors.ExpiredError()
	}
	return nil
}

func goneError(reason string) error {
	switch reason {
	case model.RetiredReasonExpired:
		return apperrors.ExpiredError()
	case model.RetiredReasonQuota:
		return apperrors.QuotaExceededError()
	default:
		return apperrors.NotFoundError()
	}
}
