package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agentrix/internal/instrument"
	"agentrix/internal/log"
	"agentrix/internal/meta"
	"agentrix/internal/metrics"
)

// ChatRequest is the body of a chat request.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse is the body of a successful chat response.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Handlers serves the chat API.
type Handlers struct {
	recorder *instrument.Recorder
	agent    Agent
	logger   log.Logger
}

// NewHandlers creates chat handlers. Each reply produced by agent is recorded as agent output.
func NewHandlers(emitter metrics.Emitter, agent Agent, logger log.Logger) *Handlers {
	return &Handlers{
		recorder: instrument.NewRecorder(emitter),
		agent:    instrument.TrackAgentOutput(emitter, agent),
		logger:   logger,
	}
}

// HandleChat records the user's message, runs the agent, and returns its reply.
func (h *Handlers) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
		return
	}

	ctx := c.Request.Context()

	h.recorder.RecordUserInput(ctx, req.Message)

	reply, err := h.agent(ctx, req.Message)
	if err != nil {
		h.logger.Error("server: agent failed: err=%v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "agent failed"})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Response: reply})
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: meta.Version()})
}
