package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
)

// authorize gates a route on a coarse object/action check. Ownership rules
// are enforced later by the owning service.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			c.Next()
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
