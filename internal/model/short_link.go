package model

import "time"

// 短链退役原因
const (
	RetiredReasonNone    = ""
	RetiredReasonExpired = "expired"
	RetiredReasonQuota   = "quota_exhausted"
	RetiredReasonDeleted = "deleted"
)

type ShortLink struct {
	BaseModel
	ShortCode     string     `gorm:"uniqueIndex;size:32;not null" json:"shortCode"`
	TargetURL     string     `gorm:"size:2048;not null" json:"targetUrl"`
	OwnerID       *string    `gorm:"size:64;index" json:"ownerId,omitempty"`
	ExpiresAt     *time.Time `gorm:"index" json:"expiresAt,omitempty"`
	MaxClicks     *int64     `json:"maxClicks,omitempty"`
	ClickCount    int64      `gorm:"not null;default:0" json:"clickCount"`
	Active        bool       `gorm:"not null;default:true;index" json:"active"`
	RetiredReason string     `gorm:"size:32;not null;default:''" json:"retiredReason,omitempty"`
	RetiredAt     *time.Time `json:"retiredAt,omitempty"`
	TotalPV       int64      `gorm:"default:0" json:"totalPv"`
	TotalUV       int64      `gorm:"default:0" json:"totalUv"`
}

// IsOwnedBy 判断短链是否属于指定用户
func (l *ShortLink) IsOwnedBy(userID string) bool {
	return l.OwnerID != nil && userID != "" && *l.OwnerID == userID
}

// IsExpiredAt 判断短链在 now 时刻是否已过期
func (l *ShortLink) IsExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// QuotaReached 判断点击配额是否已用尽
func (l *ShortLink) QuotaReached() bool {
	return l.MaxClicks != nil && l.ClickCount >= *l.MaxClicks
}
