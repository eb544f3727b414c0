package model

// BlockedDomain 禁止作为跳转目标的域名（包含其子域名）
type BlockedDomain struct {
	BaseModel
	Domain string `gorm:"size:255;uniqueIndex;not null" json:"domain"`
}
