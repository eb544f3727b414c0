package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	thirdPartyI18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"shortlink-go/internal/i18n"
)

func I18nMiddleware(bundle *thirdPartyI18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		acceptLanguage := c.GetHeader("Accept-Language")
		lang := matchLanguage(acceptLanguage)

		localizer := thirdPartyI18n.NewLocalizer(bundle, lang, acceptLanguage)
		c.Request = c.Request.WithContext(i18n.WithLocalizer(c.Request.Context(), localizer))
		c.Next()
	}
}

// matchLanguage 先按完整标签匹配，再按基础语言匹配（zh-CN -> zh）
func matchLanguage(acceptLanguage string) string {
	lang := "en" // 默认语言
	tags, _, _ := language.ParseAcceptLanguage(acceptLanguage)
	for _, tag := range tags {
		if contains(i18n.SupportedLanguages, tag.String()) {
			return tag.String()
		}
		base, _ := tag.Base()
		for _, supported := range i18n.SupportedLanguages {
			supportedBase, _ := language.Make(supported).Base()
			if supportedBase == base {
				return supported
			}
		}
	}
	return lang
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
