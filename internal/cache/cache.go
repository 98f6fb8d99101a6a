package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// KeyPrefix namespaces every key this process writes
const KeyPrefix = "claimlens:v1:"

// Cache is a byte-oriented TTL cache. A miss and a read failure both return false.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ReportKey identifies a cached analysis by its inputs
func ReportKey(videoID, locale string, maxClaims int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", videoID, locale, maxClaims)))
	return KeyPrefix + hex.EncodeToString(hash[:])
}
