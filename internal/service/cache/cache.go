// Package cache memoizes sufficiency verdicts and enrichment text.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Store is a JSON value cache. Get reports whether the key was present.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// Key joins parts under a namespace. Free-text parts are hashed so titles of
// any length and charset produce short keys.
func Key(namespace string, parts ...string) string {
	h := sha1.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(strings.TrimSpace(p)))
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Del(context.Context, string) error                     { return nil }
func (Nop) Close() error                                          { return nil }
