package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/viewer/internal/infrastructure/http/v1/dto"
)

func (h *Handler) Healthz(c *gin.Context) {
	painted := false
	select {
	case <-h.viewer.Painted():
		painted = true
	default:
	}

	h.RespondWithJSON(c, http.StatusOK, "OK", dto.HealthResponse{
		Status:  "ok",
		Painted: painted,
	})
}
