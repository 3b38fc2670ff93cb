package controllers

import (
	"net/http"

	"github.com/codingric/moneyman/ledger/session"
	"github.com/gin-gonic/gin"
)

const sessionKey = "session_id"

// RequireSession rejects requests that carry no session cookie.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		presented, _ := c.Cookie(session.CookieName)
		id, err := session.Require(presented)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func setSessionCookie(c *gin.Context, id string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, id, int(session.MaxAge.Seconds()), session.CookiePath, "", secure, true)
}
