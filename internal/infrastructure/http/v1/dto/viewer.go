package dto

type LocationRequest struct {
	At string `json:"at" validate:"required,len=24,hexadecimal"`
}

type ZoomRequest struct {
	N  *float64 `json:"n" validate:"required,min=-10,max=10"`
	CX float64  `json:"cx" validate:"min=0"`
	CY float64  `json:"cy" validate:"min=0"`
}

type StepZoomRequest struct {
	Delta float64 `json:"delta" validate:"required,min=-22,max=22"`
}

type DragRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// NavigateRequest accepts either degree/minute/second text or a latitude and
// longitude pair. Result marks a jump to a search result, which zooms closer
// when no zoom is given.
type NavigateRequest struct {
	Coordinates string   `json:"coordinates" validate:"required_without=Latitude"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,min=-180,max=180"`
	Zoom        *float64 `json:"zoom" validate:"omitempty,min=0,max=22"`
	Result      bool     `json:"result"`
}

type ResizeRequest struct {
	Width  int `json:"width" validate:"required,min=1,max=4096"`
	Height int `json:"height" validate:"required,min=1,max=4096"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Painted bool   `json:"painted"`
}
