package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/pulse/internal/handler"
)

type Config struct {
	WorkflowHandler *handler.WorkflowHandler
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	api := router.Group("/v1/")
	registerWorkflowRoutes(api, cfg.WorkflowHandler)

	return router
}
