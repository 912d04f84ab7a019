// Package parser turns free-form model output into typed values. Each
// strategy is tried in order and the first success wins; when every strategy
// declines, the caller-supplied fallback is used. Parsing never fails.
package parser

import "strings"

// Attempt is one parsing strategy. It reports false to hand over to the next.
type Attempt[T any] func(raw string) (T, bool)

// Chain runs attempts in order and falls back when all of them decline.
func Chain[T any](raw string, fallback func() T, attempts ...Attempt[T]) T {
	if v, ok := TryChain(raw, attempts...); ok {
		return v
	}
	return fallback()
}

// TryChain runs attempts in order and reports whether any of them succeeded.
func TryChain[T any](raw string, attempts ...Attempt[T]) (T, bool) {
	for _, attempt := range attempts {
		if v, ok := attempt(raw); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// greedySlice returns the text from the first open to the last close
// delimiter, inclusive.
func greedySlice(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
