package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shortlink-go/internal/apperrors"
	"shortlink-go/internal/dto"
	"shortlink-go/internal/middleware"
	"shortlink-go/internal/service"
	"shortlink-go/response"
)

const maxPageSize = 100

type ShortLinkHandler struct {
	svc *service.ShortLinkService
}

func NewShortLinkHandler(svc *service.ShortLinkService) *ShortLinkHandler {
	return &ShortLinkHandler{svc: svc}
}

// Shorten 创建短链（POST /api/shorten）
func (h *ShortLinkHandler) Shorten(c *gin.Context) {
	var req dto.ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 记录请求上下文（方法、路径）
		zap.L().Warn("Request body binding failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(bindError(err, &req))
		return
	}

	resp, err := h.svc.Shorten(c.Request.Context(), middleware.UserIDFrom(c), req)
	if err != nil {
		zap.L().Warn("Short link creation failed",
			zap.Error(err),
			zap.String("target_url", req.URL),
		)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Delete 删除本人短链（DELETE /api/urls/:shortCode）
func (h *ShortLinkHandler) Delete(c *gin.Context) {
	shortCode := c.Param("shortCode")
	if err := h.svc.Delete(c.Request.Context(), middleware.UserIDFrom(c), shortCode); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MyURLs 本人短链列表（GET /api/my-urls?page=1&size=10），不带分页参数时返回全部
func (h *ShortLinkHandler) MyURLs(c *gin.Context) {
	page, size := 1, 0
	pageStr, sizeStr := c.Query("page"), c.Query("size")
	if pageStr != "" || sizeStr != "" {
		var err error
		page, err = strconv.Atoi(defaultString(pageStr, "1"))
		if err != nil || page < 1 {
			_ = c.Error(apperrors.InvalidRequestError("error.pagination_invalid"))
			return
		}
		size, err = strconv.Atoi(defaultString(sizeStr, "10"))
		if err != nil || size < 1 || size > maxPageSize {
			_ = c.Error(apperrors.InvalidRequestError("error.pagination_invalid"))
			return
		}
	}

	pageResp, err := h.svc.ListMine(c.Request.Context(), middleware.UserIDFrom(c), page, size)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(pageResp.Total, 10))
	c.JSON(http.StatusOK, pageResp.List)
}

// Stats 短链统计（GET /api/urls/:shortCode/stats）
func (h *ShortLinkHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), middleware.UserIDFrom(c), c.Param("shortCode"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.OK(stats, "success"))
}

// Redirect 短链跳转（GET /:shortCode），注册为 NoRoute 以免与 /api 冲突
func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		_ = c.Error(apperrors.NotFoundError())
		return
	}

	shortCode := strings.TrimPrefix(c.Request.URL.Path, "/")
	targetURL, err := h.svc.Resolve(c.Request.Context(), shortCode, service.Visitor{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Redirect(http.StatusFound, targetURL)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
