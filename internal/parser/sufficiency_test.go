package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSufficiencyStrategies(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		sufficient bool
		reason     string
	}{
		{
			name:       "strict",
			raw:        `{"isSufficient": false, "reason": "too vague"}`,
			sufficient: false,
			reason:     "too vague",
		},
		{
			name:       "fenced",
			raw:        "Result:\n```json\n{\"isSufficient\": true, \"reason\": \"clear\"}\n```",
			sufficient: true,
			reason:     "clear",
		},
		{
			name:       "brace slice",
			raw:        `I think {"isSufficient": false, "reason": "needs context"} is right.`,
			sufficient: false,
			reason:     "needs context",
		},
		{
			name:       "field regex",
			raw:        `{"isSufficient": false, "reason": "missing subject", }}`,
			sufficient: false,
			reason:     "missing subject",
		},
		{
			name:       "unquoted key",
			raw:        `isSufficient: true`,
			sufficient: true,
			reason:     "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseSufficiency(tc.raw)
			assert.Equal(t, tc.sufficient, got.IsSufficient)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestParseSufficiencyDefaultsToSufficient(t *testing.T) {
	for _, raw := range []string{"", "maybe?", `{"reason": "no verdict"}`, `{"isSufficient": "yes"}`} {
		got := ParseSufficiency(raw)
		assert.True(t, got.IsSufficient, raw)
		assert.Equal(t, DefaultSufficiencyReason, got.Reason, raw)
	}
}

func TestParseSufficiencyOKReportsDefaults(t *testing.T) {
	for _, raw := range []string{"", "maybe?", `{"reason": "no verdict"}`} {
		got, ok := ParseSufficiencyOK(raw)
		assert.False(t, ok, raw)
		assert.Equal(t, DefaultSufficiency(), got, raw)
	}

	got, ok := ParseSufficiencyOK(`{"isSufficient": true, "reason": "clear"}`)
	assert.True(t, ok)
	assert.Equal(t, "clear", got.Reason)
}
