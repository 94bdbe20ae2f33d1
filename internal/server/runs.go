package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hexaflow/engine/pkg/api"
)

// handleRun executes one graph synchronously and returns the full run
// result: status, per-node trace, and final context
func (s *Server) handleRun(c *gin.Context) {
	var req api.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("invalid run request: %v", err),
			Status: http.StatusBadRequest,
		})
		return
	}
	if req.Graph == nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "run request has no graph",
			Status: http.StatusBadRequest,
		})
		return
	}
	if err := req.Graph.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("invalid graph: %v", err),
			Status: http.StatusBadRequest,
		})
		return
	}

	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = req.Graph.TenantID
	}

	res, err := s.runner.Run(
		c.Request.Context(), req.Graph, req.InitialContext,
		tenantID, req.ActorID,
	)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
			Error:  fmt.Sprintf("run failed to start: %v", err),
			Status: http.StatusUnprocessableEntity,
		})
		return
	}

	s.metrics.ObserveRun(res.Status)
	c.JSON(http.StatusOK, res)
}
