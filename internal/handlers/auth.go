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
)

type AuthHandler struct {
	log         *logger.Logger
	userService services.UserService
}

func NewAuthHandler(baseLog *logger.Logger, userService services.UserService) *AuthHandler {
	return &AuthHandler{
		log:         baseLog.With("handler", "AuthHandler"),
		userService: userService,
	}
}

// Sync returns the profile provisioned or refreshed by the middleware chain.
// The endpoint exists so clients can force a claim sync right after login
// instead of waiting for their next catalog call.
func (h *AuthHandler) Sync(c *gin.Context) {
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
