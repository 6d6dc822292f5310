package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/services"
)

type UserHandler struct {
	log         *logger.Logger
	userService services.UserService
}

func NewUserHandler(baseLog *logger.Logger, userService services.UserService) *UserHandler {
	return &UserHandler{
		log:         baseLog.With("handler", "UserHandler"),
		userService: userService,
	}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

// UpdatePreferences replaces the whole preferences blob. The body is the raw
// JSON object; one extra byte past the cap is read so the service can reject
// oversized payloads instead of silently truncating them.
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, services.MaxPreferencesBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidationFailed, fmt.Errorf("read body: %w", err))
		return
	}

	user, err := h.userService.UpdatePreferences(c.Request.Context(), nil, rd.UserID, json.RawMessage(body))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}
