package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// Supported response languages, the first being the fallback.
var supportedLanguages = []language.Tag{language.Russian, language.English}

var languageMatcher = language.NewMatcher(supportedLanguages)

// PreferredLanguage picks the response language from Accept-Language and
// returns its base code ("ru" or "en"). Weak matches fall back to Russian.
func PreferredLanguage(c *gin.Context) string {
	tags, _, err := language.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return baseOf(supportedLanguages[0])
	}
	_, idx, conf := languageMatcher.Match(tags...)
	if conf <= language.Low {
		return baseOf(supportedLanguages[0])
	}
	return baseOf(supportedLanguages[idx])
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
