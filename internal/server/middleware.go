package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// ActorRequired resolves the caller from the headers set by the upstream
// authenticator. Requests without a usable identity stop here with 401.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		role, ok := actorcontext.ParseRole(c.GetHeader(HeaderActorRole))
		if id == "" || !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actorcontext.WithActor(c.Request.Context(), actorcontext.Actor{ID: id, Role: role})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
