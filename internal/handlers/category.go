package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/services"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type CategoryHandler struct {
	log             *logger.Logger
	categoryService services.CategoryService
}

func NewCategoryHandler(baseLog *logger.Logger, categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		log:             baseLog.With("handler", "CategoryHandler"),
		categoryService: categoryService,
	}
}

// ListCategories returns the nested tree by default, or the flat table with
// ?flat=1 for clients that build their own hierarchy.
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var (
		categories []*types.Category
		err        error
	)
	if flat := queryBool(c, "flat"); flat != nil && *flat {
		categories, err = h.categoryService.Flat(c.Request.Context(), nil)
	} else {
		categories, err = h.categoryService.Tree(c.Request.Context(), nil)
	}
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"categories": categories})
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	category, err := h.categoryService.GetBySlug(c.Request.Context(), nil, c.Param("slug"))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"category": category})
}

func (h *CategoryHandler) ListCategoryLectures(c *gin.Context) {
	page := pageParams(c)
	lectures, total, err := h.categoryService.ListLectures(c.Request.Context(), nil, c.Param("slug"), page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(lectures, page, total))
}

func (h *CategoryHandler) ListCategoryCollections(c *gin.Context) {
	page := pageParams(c)
	collections, total, err := h.categoryService.ListCollections(c.Request.Context(), nil, c.Param("slug"), page)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, types.NewList(collections, page, total))
}
