package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "github.com/yungbote/batchcore-backend/internal/handlers"
)

type RouterConfig struct {
  BatchHandler      *handlers.BatchHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  api := router.Group("/api")
  {
    api.GET("/batch/jobs", cfg.BatchHandler.ListJobs)
    api.POST("/batch/jobs/:jobName/trigger", cfg.BatchHandler.TriggerJob)
    api.GET("/batch/executions/:executionId", cfg.BatchHandler.GetExecution)
    api.POST("/batch/executions/:executionId/stop", cfg.BatchHandler.StopJob)
    api.GET("/batch/triggers/:triggerId/execution", cfg.BatchHandler.GetExecutionByTriggerID)
    api.GET("/batch/queue", cfg.BatchHandler.QueueDepth)
  }

  return router
}
