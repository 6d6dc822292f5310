package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type fakePlaybackService struct {
	position  *types.PlaybackPosition
	positions []*types.PlaybackPosition
	err       error

	lastUserID    uuid.UUID
	lastLectureID uuid.UUID
	lastSecs      int
}

func (f *fakePlaybackService) GetPosition(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) (*types.PlaybackPosition, error) {
	f.lastUserID = userID
	f.lastLectureID = lectureID
	if f.err != nil {
		return nil, f.err
	}
	return f.position, nil
}

func (f *fakePlaybackService) SavePosition(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID, positionSecs int) (*types.PlaybackPosition, error) {
	f.lastUserID = userID
	f.lastLectureID = lectureID
	f.lastSecs = positionSecs
	if f.err != nil {
		return nil, f.err
	}
	return f.position, nil
}

func (f *fakePlaybackService) ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.PlaybackPosition, int64, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.positions, int64(len(f.positions)), nil
}

func playbackTestRouter(t *testing.T, svc *fakePlaybackService, rd *requestdata.RequestData) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewPlaybackHandler(testLogger(t), svc)
	router := gin.New()
	if rd != nil {
		router.Use(asUser(rd))
	}
	router.GET("/me/playback", h.ListRecent)
	router.GET("/me/playback/:lectureID", h.GetPosition)
	router.PUT("/me/playback/:lectureID", h.SavePosition)
	return router
}

func TestSavePosition(t *testing.T) {
	rd := freeUser()
	lectureID := uuid.New()
	svc := &fakePlaybackService{position: &types.PlaybackPosition{
		ID:           uuid.New(),
		UserID:       rd.UserID,
		LectureID:    lectureID,
		PositionSecs: 300,
	}}
	router := playbackTestRouter(t, svc, rd)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me/playback/"+lectureID.String(), strings.NewReader(`{"position_secs": 300}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if svc.lastSecs != 300 || svc.lastUserID != rd.UserID || svc.lastLectureID != lectureID {
		t.Fatalf("save call: secs=%d user=%s lecture=%s", svc.lastSecs, svc.lastUserID, svc.lastLectureID)
	}
	var body struct {
		Position *types.PlaybackPosition `json:"position"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Position == nil || body.Position.PositionSecs != 300 {
		t.Fatalf("position payload: %+v", body.Position)
	}
}

func TestSavePositionMalformedBody(t *testing.T) {
	svc := &fakePlaybackService{}
	router := playbackTestRouter(t, svc, freeUser())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me/playback/"+uuid.NewString(), strings.NewReader(`{"position_secs": `))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != apierr.CodeValidationFailed {
		t.Fatalf("error code: want=%s got=%s", apierr.CodeValidationFailed, code)
	}
	if svc.lastSecs != 0 {
		t.Fatalf("service called with malformed body")
	}
}

func TestGetPositionRequiresIdentity(t *testing.T) {
	router := playbackTestRouter(t, &fakePlaybackService{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me/playback/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=%d got=%d", http.StatusUnauthorized, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != apierr.CodeInvalidToken {
		t.Fatalf("error code: want=%s got=%s", apierr.CodeInvalidToken, code)
	}
}

func TestGetPositionNotFound(t *testing.T) {
	svc := &fakePlaybackService{err: apierr.NotFound("playback position")}
	router := playbackTestRouter(t, svc, freeUser())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me/playback/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, w.Code)
	}
}

func TestListRecent(t *testing.T) {
	rd := freeUser()
	svc := &fakePlaybackService{positions: []*types.PlaybackPosition{
		{ID: uuid.New(), UserID: rd.UserID, LectureID: uuid.New(), PositionSecs: 90},
		{ID: uuid.New(), UserID: rd.UserID, LectureID: uuid.New(), PositionSecs: 45},
	}}
	router := playbackTestRouter(t, svc, rd)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me/playback", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("items: want=2 got=%d", len(list.Items))
	}
}
