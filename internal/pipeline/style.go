package pipeline

import (
	"strings"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
)

var (
	dramaticKeywords = []string{"overtime", "final", "crucial", "critical", "game-winning", "timeout"}
	excitingKeywords = []string{"goal", "score", "save", "shot", "penalty", "power play", "amazing", "incredible"}
)

// ResolveStyle returns the style to voice text with. Only StyleAuto is
// resolved from the text; any other style is returned unchanged.
func ResolveStyle(style, text string) string {
	if style == "" {
		return domain.DefaultStyle
	}
	if style != domain.StyleAuto {
		return style
	}

	lower := strings.ToLower(text)
	for _, kw := range dramaticKeywords {
		if strings.Contains(lower, kw) {
			return domain.StyleDramatic
		}
	}
	for _, kw := range excitingKeywords {
		if strings.Contains(lower, kw) {
			return domain.StyleEnthusiastic
		}
	}
	return domain.DefaultStyle
}
