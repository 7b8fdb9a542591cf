package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reconciledomain "github.com/smallbiznis/shipledger/internal/reconcile/domain"
)

func (s *Server) ReconcileShipment(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciler.ReconcileShipment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReconcileOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reconciler.ReconcileOrder(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListReconcileRuns(c *gin.Context) {
	targetID, err := parseOptionalSnowflakeID(c.Query("target_id"))
	if err != nil {
		AbortWithError(c, newValidationError("target_id", "invalid_id", "invalid target_id"))
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}

	req := reconciledomain.ListRunsRequest{
		Kind: reconciledomain.Kind(strings.TrimSpace(c.Query("kind"))),
	}
	if targetID != nil {
		req.TargetID = targetID.Int64()
	}
	if limit != nil {
		req.Limit = *limit
	}

	resp, err := s.reconciler.ListRuns(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
