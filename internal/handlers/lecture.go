package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/services"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type LectureHandler struct {
	log            *logger.Logger
	lectureService services.LectureService
}

func NewLectureHandler(baseLog *logger.Logger, lectureService services.LectureService) *LectureHandler {
	return &LectureHandler{
		log:            baseLog.With("handler", "LectureHandler"),
		lectureService: lectureService,
	}
}

func (h *LectureHandler) ListLectures(c *gin.Context) {
	page := pageParams(c)
	filter := repos.LectureFilter{
		SpeakerID:    queryUUID(c, "speaker_id"),
		CollectionID: queryUUID(c, "collection_id"),
		Query:        c.Query("q"),
	}
	lectures, total, err := h.lectureService.ListLectures(c.Request.Context(), nil, filter, c.Query("category"), page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(lectures, page, total))
}

func (h *LectureHandler) GetLecture(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lecture, err := h.lectureService.GetLecture(c.Request.Context(), nil, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"lecture": lecture})
}
