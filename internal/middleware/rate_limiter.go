package middleware

import (
	"net/http"
	"sync"
	"time"

	"tillpoint/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per client key within a sliding window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

var (
	loginRateMap = make(map[string]*rateEntry)
	loginRateMu  sync.Mutex

	apiRateMap = make(map[string]*rateEntry)
	apiRateMu  sync.Mutex
)

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := fetchEntry(loginRateMap, &loginRateMu, c.ClientIP())

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(time.Minute)
		}

		entry.count++
		if entry.count > 20 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many login attempts, retry in one minute"))
			return
		}
		c.Next()
	}
}

// RateLimiter is the general-purpose sliding-window limiter applied to the
// whole API. Keyed by IP.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := fetchEntry(apiRateMap, &apiRateMu, c.ClientIP())

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(window)
		}

		entry.count++
		if entry.count > limit {
			c.Header("Retry-After", entry.windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, slow down"))
			return
		}
		c.Next()
	}
}

func fetchEntry(m map[string]*rateEntry, mu *sync.Mutex, key string) *rateEntry {
	mu.Lock()
	defer mu.Unlock()
	entry, ok := m[key]
	if !ok {
		entry = &rateEntry{}
		m[key] = entry
	}
	return entry
}

// Expired entries are purged periodically so IPs that never return don't
// accumulate.
const purgeInterval = 5 * time.Minute

func init() {
	go purgeExpiredEntries()
}

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		purged := purgeMap(loginRateMap, &loginRateMu) + purgeMap(apiRateMap, &apiRateMu)
		if purged > 0 {
			log.Debug().Int("entries_purged", purged).Msg("rate limiter maps purged")
		}
	}
}

func purgeMap(m map[string]*rateEntry, mu *sync.Mutex) int {
	now := time.Now()
	mu.Lock()
	defer mu.Unlock()
	purged := 0
	for key, entry := range m {
		entry.mu.Lock()
		if now.After(entry.windowEnd) {
			delete(m, key)
			purged++
		}
		entry.mu.Unlock()
	}
	return purged
}
