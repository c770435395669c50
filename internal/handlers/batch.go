package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/batchcore-backend/internal/batch"
	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/repos"
)

type BatchHandler struct {
	log         *logger.Logger
	coordinator *batch.Coordinator
}

func NewBatchHandler(baseLog *logger.Logger, coordinator *batch.Coordinator) *BatchHandler {
	return &BatchHandler{
		log:         baseLog.With("handler", "BatchHandler"),
		coordinator: coordinator,
	}
}

type TriggerRequest struct {
	TriggerID  string            `json:"triggerId"`
	Parameters map[string]string `json:"parameters"`
}

type TriggerResponse struct {
	Success     bool   `json:"success"`
	ExecutionID int64  `json:"executionId"`
	JobName     string `json:"jobName"`
	TriggerID   string `json:"triggerId"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

func (h *BatchHandler) TriggerJob(c *gin.Context) {
	jobName := c.Param("jobName")
	var req TriggerRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	exec, err := h.coordinator.Trigger(c.Request.Context(), jobName, req.TriggerID, req.Parameters)
	if err != nil {
		switch {
		case errors.Is(err, batch.ErrJobNotFound):
			RespondError(c, http.StatusNotFound, "job_not_found", err)
		case errors.Is(err, batch.ErrInvalidParameters):
			RespondError(c, http.StatusBadRequest, "invalid_parameters", err)
		case errors.Is(err, batch.ErrQueueTimeout):
			RespondError(c, http.StatusTooManyRequests, "queue_timeout", err)
		default:
			RespondError(c, http.StatusInternalServerError, "trigger_failed", err)
		}
		return
	}

	RespondOK(c, TriggerResponse{
		Success:     true,
		ExecutionID: exec.ID,
		JobName:     exec.JobName,
		TriggerID:   batch.TriggerID(exec.Parameters),
		Status:      string(exec.Status),
		Message:     "job triggered",
	})
}

func (h *BatchHandler) StopJob(c *gin.Context) {
	executionID, err := strconv.ParseInt(c.Param("executionId"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_execution_id", err)
		return
	}
	stopped, err := h.coordinator.Stop(c.Request.Context(), executionID)
	if err != nil {
		if errors.Is(err, repos.ErrExecutionNotFound) {
			RespondError(c, http.StatusNotFound, "execution_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "stop_failed", err)
		return
	}
	message := "stop requested"
	if !stopped {
		message = "execution already finished"
	}
	RespondOK(c, gin.H{"success": stopped, "message": message})
}

func (h *BatchHandler) GetExecution(c *gin.Context) {
	executionID, err := strconv.ParseInt(c.Param("executionId"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_execution_id", err)
		return
	}
	exec, err := h.coordinator.FindExecution(c.Request.Context(), executionID)
	if err != nil {
		if errors.Is(err, repos.ErrExecutionNotFound) {
			RespondError(c, http.StatusNotFound, "execution_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, exec)
}

func (h *BatchHandler) GetExecutionByTriggerID(c *gin.Context) {
	triggerID := c.Param("triggerId")
	exec, err := h.coordinator.FindByTriggerID(c.Request.Context(), triggerID)
	if err != nil {
		if errors.Is(err, repos.ErrExecutionNotFound) {
			RespondError(c, http.StatusNotFound, "execution_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, exec)
}

func (h *BatchHandler) ListJobs(c *gin.Context) {
	RespondOK(c, gin.H{"jobs": h.coordinator.Registry().Names()})
}

func (h *BatchHandler) QueueDepth(c *gin.Context) {
	RespondOK(c, gin.H{"queueSize": h.coordinator.QueueDepth()})
}
