package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shortlink-go/internal/model"
)

type StatsStore struct {
	db *gorm.DB
}

func NewStatsStore(db *gorm.DB) *StatsStore {
	return &StatsStore{db: db}
}

// UpsertDailyStat 写入当日 PV/UV，(short_link_id, date) 冲突时覆盖
func (s *StatsStore) UpsertDailyStat(ctx context.Context, stat *model.DailyStat) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "short_link_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"pv", "uv", "updated_at"}),
	}).Create(stat).Error
	return translateError(err, "upsert daily stat")
}

func (s *StatsStore) UpdateTotals(ctx context.Context, shortLinkID uint, totalPV, totalUV int64) error {
	err := s.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("id = ?", shortLinkID).
		UpdateColumns(map[string]interface{}{
			"total_pv": totalPV,
			"total_uv": totalUV,
		}).Error
	return translateError(err, "update totals")
}

// ListDailyStats 按日期倒序返回最近 days 天的统计
func (s *StatsStore) ListDailyStats(ctx context.Context, shortLinkID uint, days int) ([]model.DailyStat, error) {
	var stats []model.DailyStat
	err := s.db.WithContext(ctx).
		Where("short_link_id = ?", shortLinkID).
		Order("date DESC").
		Limit(days).
		Find(&stats).Error
	if err != nil {
		return nil, translateError(err, "list daily stats")
	}
	return stats, nil
}
