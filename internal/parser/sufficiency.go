package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kapu/reader-sim-go/internal/domain"
)

// DefaultSufficiencyReason is used when nothing in the response could be read.
const DefaultSufficiencyReason = "Unable to parse, default to sufficient"

var (
	fencedJSONPattern    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	isSufficientPattern  = regexp.MustCompile(`(?i)"?isSufficient"?\s*:\s*(true|false)`)
	sufficientReasonPatt = regexp.MustCompile(`(?s)"?reason"?\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

type sufficiencyPayload struct {
	IsSufficient *bool  `json:"isSufficient"`
	Reason       string `json:"reason"`
}

// ParseSufficiency reads a sufficiency verdict. Anything unreadable counts as
// sufficient so the pipeline keeps going.
func ParseSufficiency(raw string) domain.SufficiencyResult {
	result, _ := ParseSufficiencyOK(raw)
	return result
}

// ParseSufficiencyOK is ParseSufficiency that also reports whether the verdict
// was read from raw (false means the default was used).
func ParseSufficiencyOK(raw string) (domain.SufficiencyResult, bool) {
	if result, ok := TryChain(raw,
		StrictSufficiency,
		FencedSufficiency,
		BraceSufficiency,
		FieldSufficiency,
	); ok {
		return result, true
	}
	return DefaultSufficiency(), false
}

func DefaultSufficiency() domain.SufficiencyResult {
	return domain.SufficiencyResult{IsSufficient: true, Reason: DefaultSufficiencyReason}
}

// StrictSufficiency parses the whole text as a JSON object.
func StrictSufficiency(raw string) (domain.SufficiencyResult, bool) {
	return decodeSufficiency(strings.TrimSpace(raw))
}

// FencedSufficiency parses the first fenced code block.
func FencedSufficiency(raw string) (domain.SufficiencyResult, bool) {
	m := fencedJSONPattern.FindStringSubmatch(raw)
	if m == nil {
		return domain.SufficiencyResult{}, false
	}
	return decodeSufficiency(strings.TrimSpace(m[1]))
}

// BraceSufficiency parses the greedy first-'{' to last-'}' slice.
func BraceSufficiency(raw string) (domain.SufficiencyResult, bool) {
	slice, ok := greedySlice(raw, '{', '}')
	if !ok {
		return domain.SufficiencyResult{}, false
	}
	return decodeSufficiency(slice)
}

// FieldSufficiency pulls isSufficient (and reason, when present) out of
// malformed JSON.
func FieldSufficiency(raw string) (domain.SufficiencyResult, bool) {
	m := isSufficientPattern.FindStringSubmatch(raw)
	if m == nil {
		return domain.SufficiencyResult{}, false
	}

	result := domain.SufficiencyResult{IsSufficient: strings.EqualFold(m[1], "true")}
	if r := sufficientReasonPatt.FindStringSubmatch(raw); r != nil {
		result.Reason = unescapeJSONString(r[1])
	}
	return result, true
}

func decodeSufficiency(s string) (domain.SufficiencyResult, bool) {
	var payload sufficiencyPayload
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return domain.SufficiencyResult{}, false
	}
	if payload.IsSufficient == nil {
		return domain.SufficiencyResult{}, false
	}
	return domain.SufficiencyResult{IsSufficient: *payload.IsSufficient, Reason: payload.Reason}, true
}
