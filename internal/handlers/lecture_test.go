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
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type fakeLectureService struct {
	lectures []*types.Lecture
	err      error

	lastFilter   repos.LectureFilter
	lastCategory string
	lastID       uuid.UUID
}

func (f *fakeLectureService) GetLecture(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lecture, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.lectures[0], nil
}

func (f *fakeLectureService) ListLectures(ctx context.Context, tx *gorm.DB, filter repos.LectureFilter, categorySlug string, page types.PageParams) ([]*types.Lecture, int64, error) {
	f.lastFilter = filter
	f.lastCategory = categorySlug
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.lectures, int64(len(f.lectures)), nil
}

func lectureTestRouter(t *testing.T, svc *fakeLectureService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewLectureHandler(testLogger(t), svc)
	router := gin.New()
	router.GET("/lectures", h.ListLectures)
	router.GET("/lectures/:id", h.GetLecture)
	return router
}

func TestListLecturesForwardsFilters(t *testing.T) {
	collectionID := uuid.New()
	svc := &fakeLectureService{lectures: []*types.Lecture{
		{ID: uuid.New(), Title: "Walking the Path"},
	}}
	router := lectureTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/lectures?collection_id="+collectionID.String()+"&q=walking&category=mussar", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if svc.lastFilter.CollectionID == nil || *svc.lastFilter.CollectionID != collectionID {
		t.Fatalf("collection filter: %+v", svc.lastFilter.CollectionID)
	}
	if svc.lastFilter.SpeakerID != nil {
		t.Fatalf("speaker filter should be absent: %+v", svc.lastFilter.SpeakerID)
	}
	if svc.lastFilter.Query != "walking" || svc.lastCategory != "mussar" {
		t.Fatalf("filters: query=%q category=%q", svc.lastFilter.Query, svc.lastCategory)
	}
}

func TestListLecturesIgnoresMalformedFilterIDs(t *testing.T) {
	svc := &fakeLectureService{}
	router := lectureTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/lectures?speaker_id=garbage", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if svc.lastFilter.SpeakerID != nil {
		t.Fatalf("malformed speaker_id should read as absent: %+v", svc.lastFilter.SpeakerID)
	}
}

func TestGetLecture(t *testing.T) {
	lecture := &types.Lecture{ID: uuid.New(), Title: "Introduction", FileKey: "cohen/mussar/01_intro.mp3"}
	svc := &fakeLectureService{lectures: []*types.Lecture{lecture}}
	router := lectureTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/lectures/"+lecture.ID.String(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if svc.lastID != lecture.ID {
		t.Fatalf("lecture id: want=%s got=%s", lecture.ID, svc.lastID)
	}
	var body struct {
		Lecture struct {
			Title string `json:"title"`
		} `json:"lecture"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Lecture.Title != "Introduction" {
		t.Fatalf("lecture payload: %+v", body.Lecture)
	}
}

func TestGetLectureNotFound(t *testing.T) {
	svc := &fakeLectureService{err: apierr.NotFound("lecture")}
	router := lectureTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/lectures/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != apierr.CodeNotFound {
		t.Fatalf("error code: want=%s got=%s", apierr.CodeNotFound, code)
	}
}
