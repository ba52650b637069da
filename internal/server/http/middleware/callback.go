package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/gophercheckout/internal/server/http/dto"
)

const (
	// CallbackTokenHeader carries the shared callback token.
	CallbackTokenHeader = "X-Callback-Token"
	callbackTokenQuery  = "token"
)

// CallbackTokenRequired rejects provider callbacks that do not present the
// shared token in CallbackTokenHeader or the token query parameter. Providers
// that cannot set headers get the token embedded in their callback URL.
// An empty token accepts every callback.
func CallbackTokenRequired(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		presented := c.GetHeader(CallbackTokenHeader)
		if presented == "" {
			presented = c.Query(callbackTokenQuery)
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid callback token"})
			return
		}
		c.Next()
	}
}
