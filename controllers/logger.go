package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Logger logs every request once it has been handled.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		e := log.Info()
		if c.Writer.Status() >= 500 {
			e = log.Error()
		}
		e.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration_ms", time.Since(started)).
			Msg("request")
	}
}
