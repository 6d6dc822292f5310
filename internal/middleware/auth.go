package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lecternfm/lectern-backend/internal/handlers"
	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	verifier    services.TokenVerifier
	authService services.AuthService
}

func NewAuthMiddleware(baseLog *logger.Logger, verifier services.TokenVerifier, authService services.AuthService) *AuthMiddleware {
	middlewareLog := baseLog.With("middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLog, verifier: verifier, authService: authService}
}

// RequireAuth verifies the bearer token and attaches the caller's identity to
// the request context. It does not touch the database; ResolveUser does that
// after rate limiting has had its say.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			handlers.RespondError(c, http.StatusUnauthorized, apierr.CodeMissingToken, errors.New("missing bearer token"))
			c.Abort()
			return
		}

		identity, err := am.verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			handlers.RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("invalid bearer token"))
			c.Abort()
			return
		}

		rd := &requestdata.RequestData{
			TokenString: tokenString,
			Identity:    identity,
		}
		ctx := requestdata.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ResolveUser upserts the local user row from the verified identity and
// records its id and premium flag on the request data.
func (am *AuthMiddleware) ResolveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil || rd.Identity == nil {
			handlers.RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
			c.Abort()
			return
		}

		user, err := am.authService.SyncUser(c.Request.Context(), nil, rd.Identity)
		if err != nil {
			am.log.Error("user sync failed", "subject", rd.Identity.Subject, "error", err)
			handlers.RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, errors.New("internal server error"))
			c.Abort()
			return
		}

		rd.UserID = user.ID
		rd.Premium = user.Premium
		c.Next()
	}
}

// extractToken reads the Authorization header first, then a token query
// parameter. The query form exists for audio elements, which cannot set
// headers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	return ""
}
