package queries

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"papermind-backend/internal/shared/server/middleware"
	"papermind-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Orchestrator
}

func NewHandler(svc *Orchestrator) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches query routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ask", h.ask)
	rg.GET("/history/:paperId", h.history)
}

type askRequest struct {
	PaperID  string `json:"paperId"`
	Question string `json:"question"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	c.Set(middleware.PaperIDKey, req.PaperID)

	exchange, err := h.Svc.Ask(c.Request.Context(), middleware.UserIDFromContext(c), req.PaperID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Paper ID and question are required", nil)
		case errors.Is(err, ErrPaperNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Paper not found", nil)
		case errors.Is(err, ErrQueryFailed):
			c.Set(middleware.OutcomeKey, "query_failed")
			_ = c.Error(err)
			respond.Error(c, http.StatusInternalServerError, "query_failed", "Failed to process query", nil)
		default:
			respond.Internal(c, "failed to process query", err)
		}
		return
	}

	respond.OK(c, gin.H{
		"answer":  exchange.Answer,
		"queryId": exchange.ID,
		"askedAt": exchange.AskedAt,
	})
}

func (h *Handler) history(c *gin.Context) {
	paperID := c.Param("paperId")
	c.Set(middleware.PaperIDKey, paperID)

	exchanges, err := h.Svc.History(c.Request.Context(), middleware.UserIDFromContext(c), paperID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Paper ID is required", nil)
			return
		}
		respond.Internal(c, "failed to load history", err)
		return
	}
	respond.OK(c, gin.H{"queries": toResponses(exchanges)})
}
