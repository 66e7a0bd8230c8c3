package config

import (
	"fmt"
	"time"
)

// SessionUpdatedAtTTL bounds how long a stale updated_at stamp can survive in
// the cache after a failed refresh. If the Set following a mutation is lost to
// a Redis hiccup, the previous stamp expires on its own and the next poll
// falls back to the store instead of short-circuiting to 304 forever.
const SessionUpdatedAtTTL = 5 * time.Second

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionUpdatedAtKey returns the cache key holding a session's updated_at as
// unix seconds. It backs the conditional-GET 304 fast path.
func (r *CacheKeyStruct) SessionUpdatedAtKey(sessionID string) string {
	return fmt.Sprintf("quiz:session:%s:updated_at", sessionID)
}

// ChannelSessionKey returns the cache key mapping a channel name to the id of
// its most recent session.
func (r *CacheKeyStruct) ChannelSessionKey(channel string) string {
	return fmt.Sprintf("quiz:channel:%s:session", channel)
}

var CacheKey = NewCacheKeyStruct()
