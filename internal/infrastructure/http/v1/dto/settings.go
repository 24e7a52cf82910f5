package dto

type SettingRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

type SettingResponse struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}
