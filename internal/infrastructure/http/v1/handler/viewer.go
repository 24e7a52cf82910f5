package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/viewer/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/viewer/internal/viewport"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/mercator"
)

func (h *Handler) Frame(c *gin.Context) {
	frame, err := h.viewer.Frame(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", frame)
}

func (h *Handler) Location(c *gin.Context) {
	v, err := h.viewer.Location(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "got location", v)
}

func (h *Handler) SetLocation(c *gin.Context) {
	var req dto.LocationRequest
	if !h.bind(c, &req) {
		return
	}

	v, err := h.viewer.SetLocation(c.Request.Context(), req.At)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	loggerFrom(c).Info("location set", "token", v.Token)
	h.RespondWithJSON(c, http.StatusOK, "location set", v)
}

func (h *Handler) Zoom(c *gin.Context) {
	var req dto.ZoomRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.viewer.Zoom(c.Request.Context(), *req.N, req.CX, req.CY); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "zooming", nil)
}

func (h *Handler) StepZoom(c *gin.Context) {
	var req dto.StepZoomRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.viewer.StepZoom(c.Request.Context(), req.Delta); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "zoomed", nil)
}

func (h *Handler) Drag(c *gin.Context) {
	var req dto.DragRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.viewer.Drag(c.Request.Context(), req.DX, req.DY); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "dragged", nil)
}

func (h *Handler) Navigate(c *gin.Context) {
	var req dto.NavigateRequest
	if !h.bind(c, &req) {
		return
	}

	var coords mercator.Coordinates
	if req.Latitude != nil {
		coords = mercator.Of(*req.Latitude, *req.Longitude)
	} else {
		parsed, err := mercator.Parse(req.Coordinates)
		if err != nil {
			h.respondWithError(c, err)
			return
		}
		coords = parsed
	}

	zoom := float64(viewport.DefaultNavigateZoom)
	if req.Result {
		zoom = viewport.SearchResultZoom
	}
	if req.Zoom != nil {
		zoom = *req.Zoom
	}

	if err := h.viewer.Navigate(c.Request.Context(), coords, zoom); err != nil {
		h.respondWithError(c, err)
		return
	}

	loggerFrom(c).Info("navigating", "latitude", coords.Latitude, "longitude", coords.Longitude, "zoom", zoom)
	h.RespondWithJSON(c, http.StatusOK, "navigating", coords)
}

func (h *Handler) Resize(c *gin.Context) {
	var req dto.ResizeRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.viewer.Resize(c.Request.Context(), req.Width, req.Height); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "resized", nil)
}

func (h *Handler) Share(c *gin.Context) {
	share, err := h.viewer.Share(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "share link", share)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.viewer.Stats(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "raster stats", stats)
}

func (h *Handler) Search(c *gin.Context) {
	results, err := h.viewer.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	if len(results) == 0 {
		h.RespondWithJSON(c, http.StatusOK, "no results found", results)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "found results", results)
}
