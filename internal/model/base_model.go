package model

import "time"

// BaseModel 通用字段（不含 DeletedAt，短链永不物理删除）
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
