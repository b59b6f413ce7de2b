package middleware

import (
	"math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurkhatq/connect/internal/response"
)

// InjectFailures rejects the given fraction of requests with 503 before they
// reach the handler. A rate of 0 disables it.
func InjectFailures(rate float64, log zerolog.Logger) gin.HandlerFunc {
	return injectFailures(rate, rand.Float64, log)
}

func injectFailures(rate float64, roll func() float64, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "fault_injection").Logger()
	return func(c *gin.Context) {
		if rate > 0 && roll() < rate {
			log.Debug().Str("path", c.Request.URL.Path).Msg("Injected failure")
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrUnavailable)
			return
		}
		c.Next()
	}
}
