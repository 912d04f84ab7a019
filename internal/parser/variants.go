package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kapu/reader-sim-go/internal/domain"
)

var variantTriplePattern = regexp.MustCompile(
	`"title"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*"angle"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*"focus"\s*:\s*"((?:[^"\\]|\\.)*)"`,
)

// ParseVariantList extracts variant titles from model output. An array stage
// succeeds when at least one element carries string title, angle and focus;
// malformed elements are dropped.
func ParseVariantList(raw string, fallback func() []domain.VariantTitle) []domain.VariantTitle {
	return Chain(raw, fallback,
		StrictVariantArray,
		BracketVariantArray,
		RegexVariantTriples,
	)
}

// StrictVariantArray parses the whole text as a JSON array.
func StrictVariantArray(raw string) ([]domain.VariantTitle, bool) {
	return decodeVariantArray(strings.TrimSpace(raw))
}

// BracketVariantArray parses the greedy first-'[' to last-']' slice.
func BracketVariantArray(raw string) ([]domain.VariantTitle, bool) {
	slice, ok := greedySlice(raw, '[', ']')
	if !ok {
		return nil, false
	}
	return decodeVariantArray(slice)
}

// RegexVariantTriples scans for "title", "angle", "focus" pairs in that
// order, which survives truncated or otherwise broken JSON.
func RegexVariantTriples(raw string) ([]domain.VariantTitle, bool) {
	matches := variantTriplePattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, false
	}

	variants := make([]domain.VariantTitle, 0, len(matches))
	for _, m := range matches {
		v := domain.VariantTitle{
			Title: unescapeJSONString(m[1]),
			Angle: unescapeJSONString(m[2]),
			Focus: unescapeJSONString(m[3]),
		}
		if strings.TrimSpace(v.Title) == "" {
			continue
		}
		variants = append(variants, v)
	}
	return variants, len(variants) > 0
}

func decodeVariantArray(s string) ([]domain.VariantTitle, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}

	variants := make([]domain.VariantTitle, 0, len(items))
	for _, item := range items {
		if v, ok := decodeVariant(item); ok {
			variants = append(variants, v)
		}
	}
	return variants, len(variants) > 0
}

// decodeVariant requires all three fields to be JSON strings.
func decodeVariant(item json.RawMessage) (domain.VariantTitle, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return domain.VariantTitle{}, false
	}

	var v domain.VariantTitle
	targets := map[string]*string{"title": &v.Title, "angle": &v.Angle, "focus": &v.Focus}
	for key, dst := range targets {
		rawField, ok := fields[key]
		if !ok {
			return domain.VariantTitle{}, false
		}
		if err := json.Unmarshal(rawField, dst); err != nil {
			return domain.VariantTitle{}, false
		}
	}
	if strings.TrimSpace(v.Title) == "" {
		return domain.VariantTitle{}, false
	}
	return v, true
}

func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
