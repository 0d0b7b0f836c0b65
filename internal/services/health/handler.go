package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"papermind-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the unauthenticated probes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.live)
	rg.GET("/ready", h.ready)
}

func (h *Handler) live(c *gin.Context) {
	respond.OK(c, h.Svc.Status())
}

func (h *Handler) ready(c *gin.Context) {
	report := h.Svc.Check(c.Request.Context())
	status := http.StatusOK
	if !report.Ready() {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(c, status, report)
}
