package model

type DailyStat struct {
	BaseModel
	ShortLinkID uint   `gorm:"uniqueIndex:idx_link_date,priority:1;not null" json:"shortLinkId"`
	Date        string `gorm:"uniqueIndex:idx_link_date,priority:2;size:10;not null" json:"date"` // YYYY-MM-DD
	PV          int64  `gorm:"default:0" json:"pv"`
	UV          int64  `gorm:"default:0" json:"uv"`
}
