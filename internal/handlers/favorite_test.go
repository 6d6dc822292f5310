package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type fakeFavoriteService struct {
	favorites []*types.Favorite
	err       error

	lastUserID    uuid.UUID
	lastLectureID uuid.UUID
	added         int
	removed       int
}

func (f *fakeFavoriteService) AddFavorite(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error {
	f.lastUserID = userID
	f.lastLectureID = lectureID
	f.added++
	return f.err
}

func (f *fakeFavoriteService) RemoveFavorite(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error {
	f.lastUserID = userID
	f.lastLectureID = lectureID
	f.removed++
	return f.err
}

func (f *fakeFavoriteService) ListFavorites(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.Favorite, int64, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.favorites, int64(len(f.favorites)), nil
}

func favoriteTestRouter(t *testing.T, svc *fakeFavoriteService, rd *requestdata.RequestData) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewFavoriteHandler(testLogger(t), svc)
	router := gin.New()
	if rd != nil {
		router.Use(asUser(rd))
	}
	router.GET("/me/favorites", h.ListFavorites)
	router.PUT("/me/favorites/:lectureID", h.AddFavorite)
	router.DELETE("/me/favorites/:lectureID", h.RemoveFavorite)
	return router
}

func TestFavoritesRequireIdentity(t *testing.T) {
	svc := &fakeFavoriteService{}
	router := favoriteTestRouter(t, svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me/favorites/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=%d got=%d", http.StatusUnauthorized, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != apierr.CodeInvalidToken {
		t.Fatalf("error code: want=%s got=%s", apierr.CodeInvalidToken, code)
	}
	if svc.added != 0 {
		t.Fatalf("service called without identity")
	}
}

func TestAddFavorite(t *testing.T) {
	rd := freeUser()
	lectureID := uuid.New()
	svc := &fakeFavoriteService{}
	router := favoriteTestRouter(t, svc, rd)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me/favorites/"+lectureID.String(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusNoContent, w.Code, w.Body.String())
	}
	if svc.added != 1 || svc.lastUserID != rd.UserID || svc.lastLectureID != lectureID {
		t.Fatalf("add call: added=%d user=%s lecture=%s", svc.added, svc.lastUserID, svc.lastLectureID)
	}
}

func TestAddFavoriteUnknownLecture(t *testing.T) {
	svc := &fakeFavoriteService{err: apierr.NotFound("lecture")}
	router := favoriteTestRouter(t, svc, freeUser())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me/favorites/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != apierr.CodeNotFound {
		t.Fatalf("error code: want=%s got=%s", apierr.CodeNotFound, code)
	}
}

func TestRemoveFavorite(t *testing.T) {
	rd := freeUser()
	lectureID := uuid.New()
	svc := &fakeFavoriteService{}
	router := favoriteTestRouter(t, svc, rd)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/me/favorites/"+lectureID.String(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status: want=%d got=%d", http.StatusNoContent, w.Code)
	}
	if svc.removed != 1 || svc.lastLectureID != lectureID {
		t.Fatalf("remove call: removed=%d lecture=%s", svc.removed, svc.lastLectureID)
	}
}

func TestListFavorites(t *testing.T) {
	rd := freeUser()
	svc := &fakeFavoriteService{favorites: []*types.Favorite{
		{ID: uuid.New(), UserID: rd.UserID, LectureID: uuid.New()},
	}}
	router := favoriteTestRouter(t, svc, rd)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me/favorites", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if svc.lastUserID != rd.UserID {
		t.Fatalf("user id: want=%s got=%s", rd.UserID, svc.lastUserID)
	}
	var list struct {
		Items      []json.RawMessage `json:"items"`
		Pagination types.Pagination  `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Pagination.Total != 1 {
		t.Fatalf("list envelope: items=%d total=%d", len(list.Items), list.Pagination.Total)
	}
}
