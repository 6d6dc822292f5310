package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lecternfm/lectern-backend/internal/metrics"
	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/services"
)

type DeliveryHandler struct {
	log             *logger.Logger
	deliveryService services.DeliveryService
}

func NewDeliveryHandler(baseLog *logger.Logger, deliveryService services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{
		log:             baseLog.With("handler", "DeliveryHandler"),
		deliveryService: deliveryService,
	}
}

// AudioURL hands the client a presigned URL so the audio bytes flow straight
// from object storage.
func (h *DeliveryHandler) AudioURL(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	link, err := h.deliveryService.AudioURL(c.Request.Context(), nil, id, rd.Premium)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, link)
}

// Stream proxies the object through the API with single-range support. Large
// requests are clamped to the configured chunk size; clients follow up with
// the next Range request.
func (h *DeliveryHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeInvalidToken, errors.New("no verified identity"))
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.deliveryService.Stream(c.Request.Context(), nil, id, rd.Premium, c.GetHeader("Range"))
	if err != nil {
		var rangeErr *services.RangeNotSatisfiableError
		if errors.As(err, &rangeErr) {
			c.Header("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Size))
			RespondError(c, http.StatusRequestedRangeNotSatisfiable, apierr.CodeValidationFailed, errors.New("requested range not satisfiable"))
			return
		}
		respondServiceError(c, h.log, err)
		return
	}

	c.Header("Accept-Ranges", "bytes")
	if res.ContentType != "" {
		c.Header("Content-Type", res.ContentType)
	}
	if res.ContentRange != "" {
		c.Header("Content-Range", res.ContentRange)
	}
	c.Header("Content-Length", strconv.FormatInt(res.ContentLength, 10))
	c.Status(res.Status)

	if res.Body == nil {
		return
	}
	defer res.Body.Close()

	written, err := io.Copy(c.Writer, res.Body)
	metrics.StreamedBytes.Add(float64(written))
	if err != nil {
		// Usually the client seeking away mid-chunk.
		h.log.Debug("stream copy ended early", "lecture_id", id.String(), "written", written, "error", err)
	}
}
