package papers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"papermind-backend/internal/shared/server/middleware"
	"papermind-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the registry.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches paper routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/my-papers", h.listMine)
	rg.GET("/all-papers", h.listAll)
	rg.POST("/add-paper", h.adopt)
	rg.GET("/:id", h.get)
	rg.DELETE("/:id", h.remove)
}

type uploadRequest struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	reg, err := h.Svc.Register(c.Request.Context(), userID, req.Name, req.Title)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "title is required", nil)
		case errors.Is(err, ErrDuplicateTitle):
			c.Set(middleware.OutcomeKey, "duplicate_title")
			respond.Error(c, http.StatusConflict, "duplicate_title", "Paper with this title already exists", nil)
		case errors.Is(err, ErrProcessingFailed):
			c.Set(middleware.OutcomeKey, "processing_failed")
			_ = c.Error(err)
			respond.Error(c, http.StatusInternalServerError, "processing_failed", "Paper processing failed", nil)
		default:
			respond.Internal(c, "failed to register paper", err)
		}
		return
	}

	c.Set(middleware.PaperIDKey, reg.Paper.ID)
	respond.Created(c, gin.H{
		"paperId": reg.Paper.ID,
		"title":   reg.Paper.Title,
		"message": reg.Message,
	})
}

func (h *Handler) listMine(c *gin.Context) {
	papers, err := h.Svc.ListMine(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Internal(c, "failed to list papers", err)
		return
	}
	respond.OK(c, gin.H{"papers": toResponses(papers)})
}

func (h *Handler) listAll(c *gin.Context) {
	listings, err := h.Svc.ListAll(c.Request.Context())
	if err != nil {
		respond.Internal(c, "failed to list papers", err)
		return
	}
	respond.OK(c, gin.H{"papers": toListingResponses(listings)})
}

func (h *Handler) get(c *gin.Context) {
	paperID := c.Param("id")
	c.Set(middleware.PaperIDKey, paperID)

	paper, err := h.Svc.GetOwned(c.Request.Context(), paperID, middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Paper not found", nil)
			return
		}
		respond.Internal(c, "failed to load paper", err)
		return
	}
	respond.OK(c, gin.H{"paper": toResponse(paper)})
}

type adoptRequest struct {
	PaperID string `json:"paperId"`
}

func (h *Handler) adopt(c *gin.Context) {
	var req adoptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	c.Set(middleware.PaperIDKey, req.PaperID)

	paper, err := h.Svc.AdoptExisting(c.Request.Context(), req.PaperID, middleware.UserIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Missing paper ID", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Paper not found", nil)
		case errors.Is(err, ErrAlreadyAdopted):
			respond.Error(c, http.StatusConflict, "already_added", "Paper already added", nil)
		default:
			respond.Internal(c, "failed to add paper", err)
		}
		return
	}

	respond.Created(c, gin.H{
		"message": "Paper added successfully",
		"paper":   toResponse(paper),
	})
}

func (h *Handler) remove(c *gin.Context) {
	paperID := c.Param("id")
	c.Set(middleware.PaperIDKey, paperID)

	if err := h.Svc.Remove(c.Request.Context(), paperID, middleware.UserIDFromContext(c)); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Paper not found or unauthorized", nil)
			return
		}
		respond.Internal(c, "failed to delete paper", err)
		return
	}
	respond.OK(c, gin.H{"message": "Paper deleted successfully"})
}
