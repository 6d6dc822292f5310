package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/services"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type FavoriteHandler struct {
	log             *logger.Logger
	favoriteService services.FavoriteService
}

func NewFavoriteHandler(baseLog *logger.Logger, favoriteService services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{
		log:             baseLog.With("handler", "FavoriteHandler"),
		favoriteService: favoriteService,
	}
}

func (h *FavoriteHandler) ListFavorites(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	page := pageParams(c)
	favorites, total, err := h.favoriteService.ListFavorites(c.Request.Context(), nil, rd.UserID, page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(favorites, page, total))
}

func (h *FavoriteHandler) AddFavorite(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	lectureID, ok := pathUUID(c, "lectureID")
	if !ok {
		return
	}
	if err := h.favoriteService.AddFavorite(c.Request.Context(), nil, rd.UserID, lectureID); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FavoriteHandler) RemoveFavorite(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	lectureID, ok := pathUUID(c, "lectureID")
	if !ok {
		return
	}
	if err := h.favoriteService.RemoveFavorite(c.Request.Context(), nil, rd.UserID, lectureID); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
