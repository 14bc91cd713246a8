package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/pathatlas-backend/internal/http/response"
	pkgerr "github.com/yungbote/pathatlas-backend/internal/pkg/errors"
	"github.com/yungbote/pathatlas-backend/internal/services"
)

type TaxonomyHandler struct {
	svc services.TaxonomyService
}

func NewTaxonomyHandler(svc services.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{svc: svc}
}

// GET /api/v1/taxonomy/categories
func (h *TaxonomyHandler) ListCategories(c *gin.Context) {
	cats, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_categories_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"categories": cats})
}

// GET /api/v1/taxonomy/tree
func (h *TaxonomyHandler) GetTree(c *gin.Context) {
	tree, err := h.svc.GetTree(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_tree_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"roots": tree})
}

// GET /api/v1/taxonomy/categories/:id
func (h *TaxonomyHandler) GetCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_category_id", err)
		return
	}
	detail, err := h.svc.GetCategory(c.Request.Context(), id)
	if errors.Is(err, pkgerr.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, "category_not_found", err)
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_category_failed", err)
		return
	}
	response.RespondOK(c, detail)
}

// GET /api/v1/taxonomy/items/:id/assignments
func (h *TaxonomyHandler) GetItemAssignments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_item_id", err)
		return
	}
	views, err := h.svc.GetItemAssignments(c.Request.Context(), id)
	if errors.Is(err, pkgerr.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, "item_not_found", err)
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_assignments_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"assignments": views})
}
