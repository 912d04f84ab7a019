package domain

import "strings"

// Language selects prompt and fallback text localisation.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

// ParseLanguage maps user input onto a supported language, defaulting to
// English.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zh", "zh-cn", "zh_cn", "cn", "chinese":
		return LanguageChinese
	default:
		return LanguageEnglish
	}
}

func (l Language) String() string {
	return string(l)
}

// FeatureStatus reports which MCP tools are known to be usable. A nil field
// means "not probed yet".
type FeatureStatus struct {
	BrowserSearch *bool `json:"browserSearch,omitempty"`
	DatabaseQuery *bool `json:"databaseQuery,omitempty"`
}

// BrowserSearchDisabled is true only when search was explicitly turned off.
func (f FeatureStatus) BrowserSearchDisabled() bool {
	return f.BrowserSearch != nil && !*f.BrowserSearch
}

// LLMConfig is the per-run endpoint configuration. It is passed by value into
// every component and never mutated by them.
type LLMConfig struct {
	APIURL        string        `json:"apiUrl" validate:"required,url"`
	APIKey        string        `json:"-"`
	Model         string        `json:"model" validate:"required"`
	Provider      string        `json:"provider,omitempty" validate:"omitempty,oneof=openai gemini"`
	MCPURL        string        `json:"mcpUrl,omitempty" validate:"omitempty,url"`
	Language      Language      `json:"language" validate:"omitempty,oneof=en zh"`
	FeatureStatus FeatureStatus `json:"featureStatus"`
}

// Lang returns the configured language, English when unset.
func (c LLMConfig) Lang() Language {
	if c.Language == "" {
		return LanguageEnglish
	}
	return c.Language
}

// Bool is a small helper for building FeatureStatus literals.
func Bool(v bool) *bool {
	return &v
}
