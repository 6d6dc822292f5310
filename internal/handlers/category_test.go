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
	"github.com/lecternfm/lectern-backend/internal/types"
)

type fakeCategoryService struct {
	tree []*types.Category
	flat []*types.Category
	err  error

	treeCalls int
	flatCalls int
	lastSlug  string
}

func (f *fakeCategoryService) Tree(ctx context.Context, tx *gorm.DB) ([]*types.Category, error) {
	f.treeCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tree, nil
}

func (f *fakeCategoryService) Flat(ctx context.Context, tx *gorm.DB) ([]*types.Category, error) {
	f.flatCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.flat, nil
}

func (f *fakeCategoryService) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Category, error) {
	f.lastSlug = slug
	if f.err != nil {
		return nil, f.err
	}
	return f.flat[0], nil
}

func (f *fakeCategoryService) ListLectures(ctx context.Context, tx *gorm.DB, slug string, page types.PageParams) ([]*types.Lecture, int64, error) {
	f.lastSlug = slug
	if f.err != nil {
		return nil, 0, f.err
	}
	return nil, 0, nil
}

func (f *fakeCategoryService) ListCollections(ctx context.Context, tx *gorm.DB, slug string, page types.PageParams) ([]*types.Collection, int64, error) {
	f.lastSlug = slug
	if f.err != nil {
		return nil, 0, f.err
	}
	return nil, 0, nil
}

func categoryTestRouter(t *testing.T, svc *fakeCategoryService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewCategoryHandler(testLogger(t), svc)
	router := gin.New()
	router.GET("/categories", h.ListCategories)
	router.GET("/categories/:slug", h.GetCategory)
	router.GET("/categories/:slug/lectures", h.ListCategoryLectures)
	return router
}

func TestListCategoriesTree(t *testing.T) {
	root := &types.Category{ID: uuid.New(), Slug: "ethics", Name: "Ethics"}
	root.Children = []*types.Category{{ID: uuid.New(), Slug: "mussar", Name: "Mussar"}}
	svc := &fakeCategoryService{tree: []*types.Category{root}}
	router := categoryTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if svc.treeCalls != 1 || svc.flatCalls != 0 {
		t.Fatalf("calls: tree=%d flat=%d", svc.treeCalls, svc.flatCalls)
	}
	var body struct {
		Categories []struct {
			Slug     string `json:"slug"`
			Children []struct {
				Slug string `json:"slug"`
			} `json:"children"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Categories) != 1 || len(body.Categories[0].Children) != 1 {
		t.Fatalf("tree shape: %+v", body.Categories)
	}
	if body.Categories[0].Children[0].Slug != "mussar" {
		t.Fatalf("child slug: got=%s", body.Categories[0].Children[0].Slug)
	}
}

func TestListCategoriesFlat(t *testing.T) {
	svc := &fakeCategoryService{flat: []*types.Category{
		{ID: uuid.New(), Slug: "ethics"},
		{ID: uuid.New(), Slug: "mussar"},
	}}
	router := categoryTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/categories?flat=1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if svc.flatCalls != 1 || svc.treeCalls != 0 {
		t.Fatalf("calls: tree=%d flat=%d", svc.treeCalls, svc.flatCalls)
	}
}

func TestGetCategoryBySlug(t *testing.T) {
	svc := &fakeCategoryService{flat: []*types.Category{{ID: uuid.New(), Slug: "ethics", Name: "Ethics"}}}
	router := categoryTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/categories/ethics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if svc.lastSlug != "ethics" {
		t.Fatalf("slug: want=ethics got=%s", svc.lastSlug)
	}
}

func TestGetCategoryUnknownSlug(t *testing.T) {
	svc := &fakeCategoryService{err: apierr.NotFound("category")}
	router := categoryTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/categories/nope", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != apierr.CodeNotFound {
		t.Fatalf("error code: want=%s got=%s", apierr.CodeNotFound, code)
	}
}
