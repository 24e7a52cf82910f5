package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/viewer/internal/raster"
	"github.com/jaennil/guide_helper/backend/viewer/internal/search"
	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/internal/usecase"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/location"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/mercator"
)

const (
	internalServerErrorText = "the server encountered an error and could not process your request"
)

var ErrFailedToDecodeRequestBody = errors.New("failed to decode request body")

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Viewer is the viewer use case as seen by the HTTP layer.
type Viewer interface {
	Zoom(ctx context.Context, n, cx, cy float64) error
	Drag(ctx context.Context, dx, dy float64) error
	Resize(ctx context.Context, width, height int) error
	StepZoom(ctx context.Context, delta float64) error
	Navigate(ctx context.Context, c mercator.Coordinates, zoom float64) error
	SetLocation(ctx context.Context, token string) (usecase.View, error)
	Location(ctx context.Context) (usecase.View, error)
	Share(ctx context.Context) (usecase.Share, error)
	Stats(ctx context.Context) (raster.Stats, error)
	Frame(ctx context.Context) ([]byte, error)
	Painted() <-chan struct{}
	Search(ctx context.Context, query string) ([]search.Result, error)
	Settings() map[settings.Key]float64
	Setting(key string) (settings.Key, float64, error)
	SetSetting(key string, value float64) error
	ClearSetting(key string) error
}

var _ Viewer = (*usecase.ViewerUseCase)(nil)

type Handler struct {
	validate *validator.Validate
	viewer   Viewer
}

func NewHandler(v *validator.Validate, viewer Viewer) *Handler {
	return &Handler{
		validate: v,
		viewer:   viewer,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}

// bind decodes and validates the JSON body into req, answering 400 on
// failure.
func (h *Handler) bind(c *gin.Context, req any) bool {
	l := loggerFrom(c)

	if err := c.ShouldBindJSON(req); err != nil {
		l.Warn("failed to decode request body", "path", c.FullPath(), "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody.Error(), nil)
		return false
	}

	if err := h.validate.Struct(req); err != nil {
		l.Warn("invalid request", "path", c.FullPath(), "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return false
	}

	return true
}

// respondWithError maps domain errors to status codes.
func (h *Handler) respondWithError(c *gin.Context, err error) {
	l := loggerFrom(c)

	switch {
	case errors.Is(err, usecase.ErrStopped):
		h.RespondWithJSON(c, http.StatusServiceUnavailable, err.Error(), nil)
	case errors.Is(err, location.ErrInvalidLength),
		errors.Is(err, location.ErrInvalidCharacter),
		errors.Is(err, mercator.ErrInvalidCoordinates),
		errors.Is(err, settings.ErrNotInteger),
		errors.Is(err, settings.ErrOutOfRange),
		errors.Is(err, search.ErrEmptyQuery):
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, settings.ErrUnknownKey):
		h.RespondWithJSON(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, search.ErrSuperseded):
		h.RespondWithJSON(c, http.StatusConflict, err.Error(), nil)
	default:
		l.Error("request failed", "path", c.FullPath(), "error", err)
		h.RespondWithInternalServerError(c)
	}
}

func loggerFrom(c *gin.Context) logger.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}
