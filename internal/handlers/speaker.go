package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/services"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type SpeakerHandler struct {
	log            *logger.Logger
	speakerService services.SpeakerService
}

func NewSpeakerHandler(baseLog *logger.Logger, speakerService services.SpeakerService) *SpeakerHandler {
	return &SpeakerHandler{
		log:            baseLog.With("handler", "SpeakerHandler"),
		speakerService: speakerService,
	}
}

func (h *SpeakerHandler) ListSpeakers(c *gin.Context) {
	page := pageParams(c)
	filter := repos.SpeakerFilter{
		Query:   c.Query("q"),
		Premium: queryBool(c, "premium"),
	}
	speakers, total, err := h.speakerService.ListSpeakers(c.Request.Context(), nil, filter, page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(speakers, page, total))
}

func (h *SpeakerHandler) GetSpeaker(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	speaker, err := h.speakerService.GetSpeaker(c.Request.Context(), nil, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"speaker": speaker})
}

func (h *SpeakerHandler) ListSpeakerCollections(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	page := pageParams(c)
	collections, total, err := h.speakerService.ListSpeakerCollections(c.Request.Context(), nil, id, page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(collections, page, total))
}
