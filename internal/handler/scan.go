package handler

import (
	"log/slog"
	"net/http"

	"deepfake-guard/internal/detection"
	"deepfake-guard/internal/middleware"
	"deepfake-guard/internal/model"
	"github.com/gin-gonic/gin"
)

type ScanHandler struct {
	Detection *detection.Service
	Logger    *slog.Logger
}

type scanBody struct {
	ContentType model.ContentType `json:"contentType"`
	Content     string            `json:"content"`
}

func (h *ScanHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondError(c, h.Logger, model.ErrInvalidToken)
		return
	}
	var body scanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	scan, err := h.Detection.ScanContent(c.Request.Context(), userID, body.ContentType, body.Content)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, scan)
}

func (h *ScanHandler) List(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondError(c, h.Logger, model.ErrInvalidToken)
		return
	}
	scans, err := h.Detection.ScanHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if scans == nil {
		scans = []model.ScanResult{}
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans})
}

func (h *ScanHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondError(c, h.Logger, model.ErrInvalidToken)
		return
	}
	scan, err := h.Detection.ScanResult(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (h *ScanHandler) Stats(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondError(c, h.Logger, model.ErrInvalidToken)
		return
	}
	st, err := h.Detection.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
