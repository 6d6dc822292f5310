package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/services"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type PlaybackHandler struct {
	log             *logger.Logger
	playbackService services.PlaybackService
}

func NewPlaybackHandler(baseLog *logger.Logger, playbackService services.PlaybackService) *PlaybackHandler {
	return &PlaybackHandler{
		log:             baseLog.With("handler", "PlaybackHandler"),
		playbackService: playbackService,
	}
}

func (h *PlaybackHandler) ListRecent(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	page := pageParams(c)
	positions, total, err := h.playbackService.ListRecent(c.Request.Context(), nil, rd.UserID, page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(positions, page, total))
}

func (h *PlaybackHandler) GetPosition(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	lectureID, ok := pathUUID(c, "lectureID")
	if !ok {
		return
	}
	position, err := h.playbackService.GetPosition(c.Request.Context(), nil, rd.UserID, lectureID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"position": position})
}

func (h *PlaybackHandler) SavePosition(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	lectureID, ok := pathUUID(c, "lectureID")
	if !ok {
		return
	}

	var req struct {
		PositionSecs int `json:"position_secs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidationFailed, fmt.Errorf("invalid body: %w", err))
		return
	}

	position, err := h.playbackService.SavePosition(c.Request.Context(), nil, rd.UserID, lectureID, req.PositionSecs)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"position": position})
}
