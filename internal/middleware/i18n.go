package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/pkg/i18n"
)

const localeKey = "locale"

// I18n middleware picks the dashboard language from the X-Locale header
// (set by the dashboard from the user's setting) or Accept-Language.
func I18n() gin.HandlerFunc {
	return func(c *gin.Context) {
		var locale i18n.Locale
		if explicit := c.GetHeader("X-Locale"); explicit != "" {
			locale = i18n.ParseLocale(explicit)
		} else {
			locale = i18n.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
		}
		c.Set(localeKey, locale)
		c.Header("Content-Language", string(locale))
		c.Next()
	}
}

// GetLocale returns the locale from the gin context (set by I18n middleware)
func GetLocale(c *gin.Context) i18n.Locale {
	if v, exists := c.Get(localeKey); exists {
		if locale, ok := v.(i18n.Locale); ok {
			return locale
		}
	}
	return i18n.LocaleEn
}
