package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricingmodedomain "github.com/smallbiznis/shipledger/internal/pricingmode/domain"
)

func (s *Server) ListPricingModes(c *gin.Context) {
	includeInactive, err := parseOptionalBool(c.Query("include_inactive"))
	if err != nil {
		AbortWithError(c, newValidationError("include_inactive", "invalid_bool", "include_inactive must be a boolean"))
		return
	}

	req := pricingmodedomain.ListRequest{}
	if includeInactive != nil {
		req.IncludeInactive = *includeInactive
	}

	resp, err := s.pricingModes.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPricingMode(c *gin.Context) {
	resp, err := s.pricingModes.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePricingMode(c *gin.Context) {
	var req pricingmodedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingModes.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdatePricingMode(c *gin.Context) {
	var req pricingmodedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.pricingModes.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DeactivatePricingMode is a soft delete: history keeps referencing the mode.
func (s *Server) DeactivatePricingMode(c *gin.Context) {
	resp, err := s.pricingModes.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
