package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/pulse/internal/handler"
)

func registerWorkflowRoutes(router *gin.RouterGroup, workflowHandler *handler.WorkflowHandler) {
	workflows := router.Group("/workflows")
	{
		workflows.POST("", workflowHandler.Trigger)
		workflows.GET("/audits", workflowHandler.Audits)
		workflows.GET("/:id", workflowHandler.Status)
		workflows.POST("/:id/cancel", workflowHandler.Cancel)
		workflows.GET("/:id/stream", workflowHandler.Stream)
	}
}
