package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/types"
)

// pageParams reads page/per_page from the query string. Junk values fall back
// to the defaults via Normalize.
func pageParams(c *gin.Context) types.PageParams {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	return types.PageParams{Page: page, PerPage: perPage}.Normalize()
}

// pathUUID parses the named path segment as a UUID, responding 400 itself when
// the segment is malformed. Callers return immediately on ok=false.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidationFailed, fmt.Errorf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter. A malformed value reads
// as absent rather than an error; filters simply do not match.
func queryUUID(c *gin.Context, name string) *uuid.UUID {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func queryInt(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func queryBool(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}
