package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// GET /healthz/ready
func Ready(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := p.Ping(c.Request.Context()); err != nil {
			log.Error().Err(err).Msg("Database not ready")
			c.String(http.StatusServiceUnavailable, "Unavailable\n")
			return
		}
		c.String(http.StatusOK, "OK\n")
	}
}
