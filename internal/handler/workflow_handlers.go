package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/pulse/internal/service"
)

type WorkflowHandler struct {
	workflowService *service.WorkflowService
}

func NewWorkflowHandler(workflowService *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
	}
}

// triggerRequest names the workflow to start and carries its input.
type triggerRequest struct {
	Workflow string          `json:"workflow" binding:"required"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// Trigger starts a new instance of the requested workflow.
func (h *WorkflowHandler) Trigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	instanceID, err := h.workflowService.Trigger(req.Workflow, req.Input)
	if err != nil {
		if errors.Is(err, service.ErrUnknownWorkflow) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"instance_id": instanceID, "workflow": req.Workflow})
}

// Status returns the current status of one instance.
func (h *WorkflowHandler) Status(c *gin.Context) {
	status, err := h.workflowService.Status(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Cancel requests cooperative cancellation of one instance. The instance
// finishes its current step and stops at the next checkpoint.
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	if err := h.workflowService.Cancel(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"cancelled": c.Param("id")})
}

// Audits returns recent workflow lifecycle records.
func (h *WorkflowHandler) Audits(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	records, err := h.workflowService.RecentAudits(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
