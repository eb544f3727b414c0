package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shortlink-go/internal/model"
)

type DomainStore struct {
	db *gorm.DB
}

func NewDomainStore(db *gorm.DB) *DomainStore {
	return &DomainStore{db: db}
}

// SeedBlockedDomains 写入禁用域名，已存在的忽略
func (s *DomainStore) SeedBlockedDomains(ctx context.Context, domains []string) error {
	rows := make([]model.BlockedDomain, 0, len(domains))
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		rows = append(rows, model.BlockedDomain{Domain: d})
	}
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return translateError(err, "seed blocked domains")
}

func (s *DomainStore) ListBlockedDomains(ctx context.Context) ([]string, error) {
	var domains []string
	if err := s.db.WithContext(ctx).Model(&model.BlockedDomain{}).Pluck("domain", &domains).Error; err != nil {
		return nil, translateError(err, "list blocked domains")
	}
	return domains, nil
}
