package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shortlink-go/internal/model"
)

// MappingStore 短链映射存储；所有变更均为单行原子语句
type MappingStore interface {
	Create(ctx context.Context, link *model.ShortLink) error
	Get(ctx context.Context, shortCode string) (*model.ShortLink, error)
	IncrementClickIfAllowed(ctx context.Context, shortCode string, now time.Time) (*model.ShortLink, error)
	Deactivate(ctx context.Context, shortCode, requesterID string, now time.Time) error
	Retire(ctx context.Context, shortCode, reason string, now time.Time) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, page, size int) ([]model.ShortLink, int64, error)
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error)
	RetireExpired(ctx context.Context, shortCodes []string, now time.Time) (int64, error)
	ListForStats(ctx context.Context, retiredSince time.Time) ([]model.ShortLink, error)
}

type GormMappingStore struct {
	db *gorm.DB
}

func NewGormMappingStore(db *gorm.DB) *GormMappingStore {
	return &GormMappingStore{db: db}
}

// Create 插入即占位：唯一索引冲突返回 ErrCodeCollision
func (s *GormMappingStore) Create(ctx context.Context, link *model.ShortLink) error {
	link.Active = true
	link.RetiredReason = model.RetiredReasonNone
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		return translateError(err, "create short link")
	}
	return nil
}

func (s *GormMappingStore) Get(ctx context.Context, shortCode string) (*model.ShortLink, error) {
	var link model.ShortLink
	if err := s.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		return nil, translateError(err, "get short link")
	}
	return &link, nil
}

// 计数与配额判断必须在同一条 UPDATE 中完成。
// click_count 放在 SET 末尾：MySQL 按从左到右求值，前面的 CASE 需读取自增前的值。
const incrementClickSQL = `UPDATE short_links SET
 active = CASE WHEN max_clicks IS NOT NULL AND click_count + 1 >= max_clicks THEN ? ELSE active END,
 retired_reason = CASE WHEN max_clicks IS NOT NULL AND click_count + 1 >= max_clicks THEN ? ELSE retired_reason END,
 retired_at = CASE WHEN max_clicks IS NOT NULL AND click_count + 1 >= max_clicks THEN ? ELSE retired_at END,
 updated_at = ?,
 click_count = click_count + 1
 WHERE short_code = ? AND active = ?
 AND (max_clicks IS NULL OR click_count < max_clicks)
 AND (expires_at IS NULL OR expires_at > ?)`

// IncrementClickIfAllowed 原子地自增点击数；达到上限时同一语句内置为失效。
// 未命中条件时返回 ErrNotFound，或返回最新记录与 ErrInactive 供调用方判定原因。
func (s *GormMappingStore) IncrementClickIfAllowed(ctx context.Context, shortCode string, now time.Time) (*model.ShortLink, error) {
	res := s.db.WithContext(ctx).Exec(incrementClickSQL,
		false, model.RetiredReasonQuota, now,
		now,
		shortCode, true, now,
	)
	if res.Error != nil {
		return nil, translateError(res.Error, "increment click")
	}

	link, err := s.Get(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return link, ErrInactive
	}
	return link, nil
}

// Deactivate 所有者删除（墓碑）：不物理删除，短码永不复用
func (s *GormMappingStore) Deactivate(ctx context.Context, shortCode, requesterID string, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("short_code = ? AND owner_id = ? AND retired_reason <> ?", shortCode, requesterID, model.RetiredReasonDeleted).
		Updates(map[string]interface{}{
			"active":         false,
			"retired_reason": model.RetiredReasonDeleted,
			"retired_at":     now,
		})
	if res.Error != nil {
		return translateError(res.Error, "deactivate short link")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	link, err := s.Get(ctx, shortCode)
	if err != nil {
		return err
	}
	if !link.IsOwnedBy(requesterID) {
		return ErrForbidden
	}
	// 已删除的短链对所有者表现为不存在
	return ErrNotFound
}

// Retire 系统侧失效（过期等），仅对仍有效的短链生效
func (s *GormMappingStore) Retire(ctx context.Context, shortCode, reason string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("short_code = ? AND active = ?", shortCode, true).
		Updates(map[string]interface{}{
			"active":         false,
			"retired_reason": reason,
			"retired_at":     now,
		})
	if res.Error != nil {
		return false, translateError(res.Error, "retire short link")
	}
	return res.RowsAffected > 0, nil
}

// ListByOwner 按创建时间倒序分页；size <= 0 时返回全部
func (s *GormMappingStore) ListByOwner(ctx context.Context, ownerID string, page, size int) ([]model.ShortLink, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("owner_id = ? AND retired_reason <> ?", ownerID, model.RetiredReasonDeleted)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count short links")
	}
	if total == 0 {
		return []model.ShortLink{}, 0, nil
	}

	query := db.Order("created_at DESC").Order("id DESC")
	if size > 0 {
		if page < 1 {
			page = 1
		}
		query = query.Limit(size).Offset((page - 1) * size)
	}

	var links []model.ShortLink
	if err := query.Find(&links).Error; err != nil {
		return nil, 0, translateError(err, "list short links")
	}
	return links, total, nil
}

func (s *GormMappingStore) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("short_code", &codes).Error
	if err != nil {
		return nil, translateError(err, "list expired short links")
	}
	return codes, nil
}

func (s *GormMappingStore) RetireExpired(ctx context.Context, shortCodes []string, now time.Time) (int64, error) {
	if len(shortCodes) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("short_code IN ? AND active = ? AND expires_at IS NOT NULL AND expires_at <= ?", shortCodes, true, now).
		Updates(map[string]interface{}{
			"active":         false,
			"retired_reason": model.RetiredReasonExpired,
			"retired_at":     now,
		})
	if res.Error != nil {
		return 0, translateError(res.Error, "retire expired short links")
	}
	return res.RowsAffected, nil
}

// ListForStats 需要同步统计的短链：仍有效的，或在 retiredSince 之后才失效的
func (s *GormMappingStore) ListForStats(ctx context.Context, retiredSince time.Time) ([]model.ShortLink, error) {
	var links []model.ShortLink
	err := s.db.WithContext(ctx).
		Where("active = ? OR retired_at >= ?", true, retiredSince).
		Find(&links).Error
	if err != nil {
		return nil, translateError(err, "list short links for stats")
	}
	return links, nil
}
