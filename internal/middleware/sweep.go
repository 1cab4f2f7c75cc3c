package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storygram/api/internal/lifecycle"
)

// sweepMinInterval keeps the lazy sweep from running on every single
// request under load; the cron pass covers idle periods.
const sweepMinInterval = 30 * time.Second

// Sweep resolves expired stories at request entry so no handler ever
// reads an Expired-Unprocessed story as live.
func Sweep(sweeper *lifecycle.Sweeper, log zerolog.Logger) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		lastRun time.Time
	)

	return func(c *gin.Context) {
		now := time.Now().UTC()

		mu.Lock()
		due := now.Sub(lastRun) >= sweepMinInterval
		if due {
			lastRun = now
		}
		mu.Unlock()

		if due {
			if err := sweeper.Sweep(c.Request.Context(), now); err != nil {
				log.Warn().Err(err).Msg("request-entry sweep failed")
			}
		}

		c.Next()
	}
}
