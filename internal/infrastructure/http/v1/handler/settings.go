package handler

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/viewer/internal/infrastructure/http/v1/dto"
)

func (h *Handler) Settings(c *gin.Context) {
	values := h.viewer.Settings()

	resp := make([]dto.SettingResponse, 0, len(values))
	for k, v := range values {
		resp = append(resp, dto.SettingResponse{Key: string(k), Value: v})
	}
	sort.Slice(resp, func(i, j int) bool { return resp[i].Key < resp[j].Key })

	h.RespondWithJSON(c, http.StatusOK, "got settings", resp)
}

func (h *Handler) Setting(c *gin.Context) {
	k, v, err := h.viewer.Setting(c.Param("key"))
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "got setting", dto.SettingResponse{Key: string(k), Value: v})
}

func (h *Handler) SetSetting(c *gin.Context) {
	var req dto.SettingRequest
	if !h.bind(c, &req) {
		return
	}

	key := c.Param("key")
	if err := h.viewer.SetSetting(key, *req.Value); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "setting saved", dto.SettingResponse{Key: key, Value: *req.Value})
}

func (h *Handler) ClearSetting(c *gin.Context) {
	if err := h.viewer.ClearSetting(c.Param("key")); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "setting cleared", nil)
}
