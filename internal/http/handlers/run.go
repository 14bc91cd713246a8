package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pathatlas-backend/internal/http/response"
	pkgerr "github.com/yungbote/pathatlas-backend/internal/pkg/errors"
	"github.com/yungbote/pathatlas-backend/internal/services"
)

type RunHandler struct {
	svc services.TaxonomyService
}

func NewRunHandler(svc services.TaxonomyService) *RunHandler {
	return &RunHandler{svc: svc}
}

// GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.svc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_runs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

// GET /api/v1/verification/latest
func (h *RunHandler) LatestVerification(c *gin.Context) {
	report, err := h.svc.LatestVerification(c.Request.Context())
	if errors.Is(err, pkgerr.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, "no_verification_reports", err)
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "latest_verification_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// POST /api/v1/runs/curation
func (h *RunHandler) StartCuration(c *gin.Context) {
	if err := h.svc.StartCuration(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pkgerr.ErrConflict) {
			status = http.StatusConflict
		}
		response.RespondError(c, status, "start_curation_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// POST /api/v1/runs/verify
func (h *RunHandler) RunVerify(c *gin.Context) {
	run, report, err := h.svc.RunVerify(c.Request.Context())
	if err != nil && report == nil {
		response.RespondError(c, http.StatusInternalServerError, "verify_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run, "report": report})
}

// POST /api/v1/runs/sync-links
func (h *RunHandler) RunSyncLinks(c *gin.Context) {
	run, err := h.svc.RunSyncLinks(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "sync_links_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

type invalidateCacheRequest struct {
	Prefix string `json:"prefix"`
}

// POST /api/v1/cache/invalidate
func (h *RunHandler) InvalidateCache(c *gin.Context) {
	var req invalidateCacheRequest
	_ = c.ShouldBindJSON(&req)

	n, err := h.svc.InvalidateCache(c.Request.Context(), req.Prefix)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cache_invalidate_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"removed": n})
}
