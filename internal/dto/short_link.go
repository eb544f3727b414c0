package dto

import (
	"time"

	"github.com/gin-gonic/gin"

	"shortlink-go/internal/model"
	"shortlink-go/pkg/utils"
)

// ShortenRequest 创建短链的请求参数
type ShortenRequest struct {
	URL                     string `json:"url"`
	MaxClicks               *int64 `json:"maxClicks" binding:"omitnil,min=1,max=1000000000" msg:"error.max_clicks_invalid"`
	ExpirationTimeInMinutes *int64 `json:"expirationTimeInMinutes" binding:"omitnil,min=1,max=5256000" msg:"error.expiration_invalid"`
}

// Validate 自定义验证逻辑
func (r *ShortenRequest) Validate() error {
	// 复用公共的 TargetURL 校验逻辑
	if err := utils.ValidateTargetURL(r.URL); err != nil {
		return gin.Error{
			Err:  err,
			Type: gin.ErrorTypeBind,
		}
	}
	return nil
}

// ShortenResponse 创建与列表接口共用的短链结构
type ShortenResponse struct {
	URL        string     `json:"url"`
	ShortCode  string     `json:"shortCode"`
	ShortURL   string     `json:"shortUrl"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	MaxClicks  *int64     `json:"maxClicks,omitempty"`
	ClickCount int64      `json:"clickCount"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// NewShortenResponse 由模型构造响应，shortUrl = baseURL + "/" + shortCode
func NewShortenResponse(link *model.ShortLink, baseURL string) ShortenResponse {
	return ShortenResponse{
		URL:        link.TargetURL,
		ShortCode:  link.ShortCode,
		ShortURL:   baseURL + "/" + link.ShortCode,
		ExpiresAt:  link.ExpiresAt,
		MaxClicks:  link.MaxClicks,
		ClickCount: link.ClickCount,
		Active:     link.Active,
		CreatedAt:  link.CreatedAt,
	}
}

// DailyStatResponse 单日访问统计
type DailyStatResponse struct {
	Date string `json:"date"`
	PV   int64  `json:"pv"`
	UV   int64  `json:"uv"`
}

// LinkStatsResponse 短链统计（仅所有者可见）
type LinkStatsResponse struct {
	ShortenResponse
	RetiredReason string              `json:"retiredReason,omitempty"`
	TotalPV       int64               `json:"totalPv"`
	TotalUV       int64               `json:"totalUv"`
	Daily         []DailyStatResponse `json:"daily"`
}
