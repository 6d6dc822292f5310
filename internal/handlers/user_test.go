package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type fakeUserService struct {
	user *types.User
	err  error

	lastUserID uuid.UUID
	lastPrefs  json.RawMessage
}

func (f *fakeUserService) GetProfile(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) UpdatePreferences(ctx context.Context, tx *gorm.DB, userID uuid.UUID, prefs json.RawMessage) (*types.User, error) {
	f.lastUserID = userID
	f.lastPrefs = prefs
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func userTestRouter(t *testing.T, svc *fakeUserService, rd *requestdata.RequestData) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewUserHandler(testLogger(t), svc)
	router := gin.New()
	if rd != nil {
		router.Use(asUser(rd))
	}
	router.GET("/me", h.GetMe)
	router.PUT("/me/preferences", h.UpdatePreferences)
	return router
}

func TestGetMe(t *testing.T) {
	rd := premiumUser()
	svc := &fakeUserService{user: &types.User{
		ID:      rd.UserID,
		Subject: "auth0|premium",
		Email:   "premium@example.com",
		Premium: true,
	}}
	router := userTestRouter(t, svc, rd)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if svc.lastUserID != rd.UserID {
		t.Fatalf("user id: want=%s got=%s", rd.UserID, svc.lastUserID)
	}
	var body struct {
		User struct {
			Email   string `json:"email"`
			Premium bool   `json:"premium"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.User.Email != "premium@example.com" || !body.User.Premium {
		t.Fatalf("user payload: %+v", body.User)
	}
}

func TestGetMeRequiresIdentity(t *testing.T) {
	router := userTestRouter(t, &fakeUserService{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=%d got=%d", http.StatusUnauthorized, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != apierr.CodeInvalidToken {
		t.Fatalf("error code: want=%s got=%s", apierr.CodeInvalidToken, code)
	}
}

func TestUpdatePreferences(t *testing.T) {
	rd := freeUser()
	svc := &fakeUserService{user: &types.User{
		ID:          rd.UserID,
		Preferences: datatypes.JSON(`{"speed":1.5}`),
	}}
	router := userTestRouter(t, svc, rd)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me/preferences", strings.NewReader(`{"speed":1.5}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if string(svc.lastPrefs) != `{"speed":1.5}` {
		t.Fatalf("prefs forwarded: %s", svc.lastPrefs)
	}
}

func TestUpdatePreferencesRejectsInvalidJSON(t *testing.T) {
	svc := &fakeUserService{err: apierr.Validation(errors.New("preferences must be a JSON object"))}
	router := userTestRouter(t, svc, freeUser())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me/preferences", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != apierr.CodeValidationFailed {
		t.Fatalf("error code: want=%s got=%s", apierr.CodeValidationFailed, code)
	}
}
