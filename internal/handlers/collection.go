package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/services"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type CollectionHandler struct {
	log               *logger.Logger
	collectionService services.CollectionService
}

func NewCollectionHandler(baseLog *logger.Logger, collectionService services.CollectionService) *CollectionHandler {
	return &CollectionHandler{
		log:               baseLog.With("handler", "CollectionHandler"),
		collectionService: collectionService,
	}
}

func (h *CollectionHandler) ListCollections(c *gin.Context) {
	page := pageParams(c)
	filter := repos.CollectionFilter{
		SpeakerID: queryUUID(c, "speaker_id"),
		Year:      queryInt(c, "year"),
		Query:     c.Query("q"),
	}
	collections, total, err := h.collectionService.ListCollections(c.Request.Context(), nil, filter, page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(collections, page, total))
}

func (h *CollectionHandler) GetCollection(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	collection, err := h.collectionService.GetCollection(c.Request.Context(), nil, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"collection": collection})
}

func (h *CollectionHandler) ListCollectionLectures(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	page := pageParams(c)
	lectures, total, err := h.collectionService.ListCollectionLectures(c.Request.Context(), nil, id, page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(lectures, page, total))
}
