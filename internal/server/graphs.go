package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hexaflow/engine/internal/engine"
	"github.com/hexaflow/engine/pkg/api"
)

// deployGraph validates a graph, deploys it for its tenant, and arms any
// schedule triggers it declares
func (s *Server) deployGraph(c *gin.Context) {
	var g api.Graph
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("invalid graph: %v", err),
			Status: http.StatusBadRequest,
		})
		return
	}

	if err := s.source.Register(&g); err != nil {
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
			Error:  fmt.Sprintf("graph rejected: %v", err),
			Status: http.StatusUnprocessableEntity,
		})
		return
	}

	if err := s.timers.ArmGraph(c.Request.Context(), &g); err != nil {
		// deployment stands; only its timers failed to arm
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
			Error:  fmt.Sprintf("failed to arm schedule triggers: %v", err),
			Status: http.StatusUnprocessableEntity,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        g.ID,
		"tenant_id": g.TenantID,
	})
}

// undeployGraph removes a deployed graph and cancels its timers
func (s *Server) undeployGraph(c *gin.Context) {
	tenantID := c.Param("tenantID")
	graphID := c.Param("graphID")

	if err := s.source.Remove(tenantID, graphID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrGraphNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, api.ErrorResponse{
			Error:  err.Error(),
			Status: status,
		})
		return
	}

	s.timers.DisarmGraph(c.Request.Context(), tenantID, graphID)
	c.Status(http.StatusNoContent)
}
