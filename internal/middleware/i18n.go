// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/needus/ecommerce-backend/internal/i18n"
)

// I18nMiddleware picks the first supported language of Accept-Language and
// falls back to defaultLang.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if !i18n.Supported(defaultLang) {
		defaultLang = i18n.DefaultLang
	}

	return func(c *gin.Context) {
		lang := defaultLang

		// Handle cases like "zh-TW,zh;q=0.9,en;q=0.8"
		for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
			candidate := normalizeLang(strings.TrimSpace(strings.Split(part, ";")[0]))
			if candidate != "" && i18n.Supported(candidate) {
				lang = candidate
				break
			}
		}

		c.Set("lang", lang)
		c.Next()
	}
}

func normalizeLang(lang string) string {
	switch lang {
	case "zh-TW", "zh-Hant", "zh_TW", "zh-HK":
		return "zh_TW"
	case "en-US", "en-GB", "en":
		return "en"
	}
	return lang
}
