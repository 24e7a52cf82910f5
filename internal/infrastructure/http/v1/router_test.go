package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/viewer/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/viewer/internal/raster"
	"github.com/jaennil/guide_helper/backend/viewer/internal/search"
	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/internal/usecase"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/location"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/mercator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zoomCall struct{ n, cx, cy float64 }

type navigateCall struct {
	coords mercator.Coordinates
	zoom   float64
}

type fakeViewer struct {
	err       error
	zooms     []zoomCall
	drags     [][2]float64
	steps     []float64
	navigates []navigateCall
	sizes     [][2]int
	token     string
	values    map[settings.Key]float64
	painted   chan struct{}
	results   []search.Result
	searchErr error
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{
		values:  map[settings.Key]float64{},
		painted: make(chan struct{}),
	}
}

func (f *fakeViewer) Zoom(_ context.Context, n, cx, cy float64) error {
	f.zooms = append(f.zooms, zoomCall{n, cx, cy})
	return f.err
}

func (f *fakeViewer) Drag(_ context.Context, dx, dy float64) error {
	f.drags = append(f.drags, [2]float64{dx, dy})
	return f.err
}

func (f *fakeViewer) Resize(_ context.Context, width, height int) error {
	f.sizes = append(f.sizes, [2]int{width, height})
	return f.err
}

func (f *fakeViewer) StepZoom(_ context.Context, delta float64) error {
	f.steps = append(f.steps, delta)
	return f.err
}

func (f *fakeViewer) Navigate(_ context.Context, c mercator.Coordinates, zoom float64) error {
	f.navigates = append(f.navigates, navigateCall{c, zoom})
	return f.err
}

func (f *fakeViewer) SetLocation(_ context.Context, token string) (usecase.View, error) {
	loc, err := location.Decode(token)
	if err != nil {
		return usecase.View{}, err
	}
	f.token = token
	return usecase.View{Location: loc, Token: token}, f.err
}

func (f *fakeViewer) Location(context.Context) (usecase.View, error) {
	return usecase.View{Location: location.Location{X: 0.5, Y: 0.5, Z: 3}, Token: "TOKEN"}, f.err
}

func (f *fakeViewer) Share(context.Context) (usecase.Share, error) {
	return usecase.Share{Token: "TOKEN", URL: "https://viewer.test/?at=TOKEN"}, f.err
}

func (f *fakeViewer) Stats(context.Context) (raster.Stats, error) {
	return raster.Stats{Total: 4, Loading: 1, Updating: 1, Used: 0.5}, f.err
}

func (f *fakeViewer) Frame(context.Context) ([]byte, error) {
	return []byte("\x89PNG"), f.err
}

func (f *fakeViewer) Painted() <-chan struct{} {
	return f.painted
}

func (f *fakeViewer) Search(_ context.Context, query string) ([]search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, search.ErrEmptyQuery
	}
	return f.results, f.searchErr
}

func (f *fakeViewer) Settings() map[settings.Key]float64 {
	return map[settings.Key]float64{settings.ForegroundZ: 8, settings.BackgroundOpacity: 255}
}

func (f *fakeViewer) Setting(key string) (settings.Key, float64, error) {
	k, err := settings.ParseKey(key)
	if err != nil {
		return "", 0, err
	}
	return k, settings.Default(k), nil
}

func (f *fakeViewer) SetSetting(key string, value float64) error {
	k, err := settings.ParseKey(key)
	if err != nil {
		return err
	}
	if value != float64(int(value)) && k == settings.RasterRetryDelay {
		return settings.ErrNotInteger
	}
	f.values[k] = value
	return nil
}

func (f *fakeViewer) ClearSetting(key string) error {
	k, err := settings.ParseKey(key)
	if err != nil {
		return err
	}
	delete(f.values, k)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeViewer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v := newFakeViewer()
	h := handler.NewHandler(validator.New(), v)
	return NewRouter(h, logger.NewNoOp(), false, "viewer-test"), v
}

func serve(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestRouter_Healthz(t *testing.T) {
	r, v := newTestRouter(t)

	w, env := serve(t, r, http.MethodGet, "/api/v1/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok","painted":false}`, string(env.Data))

	close(v.painted)
	_, env = serve(t, r, http.MethodGet, "/api/v1/healthz", "")
	assert.JSONEq(t, `{"status":"ok","painted":true}`, string(env.Data))
}

func TestRouter_Frame(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := serve(t, r, http.MethodGet, "/api/v1/frame.png", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "\x89PNG", w.Body.String())
}

func TestRouter_Gestures(t *testing.T) {
	r, v := newTestRouter(t)

	w, _ := serve(t, r, http.MethodPost, "/api/v1/zoom", `{"n": 0.1, "cx": 10, "cy": 20}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []zoomCall{{0.1, 10, 20}}, v.zooms)

	w, _ = serve(t, r, http.MethodPost, "/api/v1/zoom", `{"cx": 10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(t, r, http.MethodPost, "/api/v1/drag", `{"dx": -3, "dy": 4}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][2]float64{{-3, 4}}, v.drags)

	w, _ = serve(t, r, http.MethodPost, "/api/v1/zoom/step", `{"delta": -0.5}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []float64{-0.5}, v.steps)

	w, _ = serve(t, r, http.MethodPost, "/api/v1/resize", `{"width": 640, "height": 480}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][2]int{{640, 480}}, v.sizes)

	w, env := serve(t, r, http.MethodPost, "/api/v1/resize", `{"width": 0, "height": 480}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, env = serve(t, r, http.MethodPost, "/api/v1/drag", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, handler.ErrFailedToDecodeRequestBody.Error(), env.Message)
}

func TestRouter_Navigate(t *testing.T) {
	r, v := newTestRouter(t)

	w, _ := serve(t, r, http.MethodPost, "/api/v1/navigate", `{"coordinates": "48°51'29.6\"N 2°17'40.2\"E"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, v.navigates, 1)
	assert.InDelta(t, 48.858222, v.navigates[0].coords.Latitude, 1e-6)
	assert.Equal(t, 10.0, v.navigates[0].zoom)

	w, _ = serve(t, r, http.MethodPost, "/api/v1/navigate", `{"latitude": 52.5, "longitude": 13.4, "result": true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, navigateCall{mercator.Of(52.5, 13.4), 14}, v.navigates[1])

	w, _ = serve(t, r, http.MethodPost, "/api/v1/navigate", `{"latitude": 0, "longitude": 0, "zoom": 3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, navigateCall{mercator.Of(0, 0), 3}, v.navigates[2])

	w, _ = serve(t, r, http.MethodPost, "/api/v1/navigate", `{"coordinates": "paris"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(t, r, http.MethodPost, "/api/v1/navigate", `{"latitude": 95, "longitude": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(t, r, http.MethodPost, "/api/v1/navigate", `{"latitude": 10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, v.navigates, 3)
}

func TestRouter_Location(t *testing.T) {
	r, v := newTestRouter(t)

	w, env := serve(t, r, http.MethodGet, "/api/v1/location", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var view usecase.View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, location.Location{X: 0.5, Y: 0.5, Z: 3}, view.Location)

	token := location.Encode(location.Location{X: 0.25, Y: 0.25, Z: 4})
	w, _ = serve(t, r, http.MethodPut, "/api/v1/location", `{"at": "`+token+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, token, v.token)

	w, _ = serve(t, r, http.MethodPut, "/api/v1/location", `{"at": "short"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = serve(t, r, http.MethodGet, "/api/v1/share", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"TOKEN","url":"https://viewer.test/?at=TOKEN"}`, string(env.Data))
}

func TestRouter_Stats(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := serve(t, r, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":4,"loading":1,"updating":1,"used":0.5}`, string(env.Data))
}

func TestRouter_Search(t *testing.T) {
	r, v := newTestRouter(t)
	v.results = []search.Result{{DisplayName: "Berlin", Coordinates: mercator.Of(52.5, 13.4), Formatted: "x"}}

	w, env := serve(t, r, http.MethodGet, "/api/v1/search?q=berlin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "found results", env.Message)

	w, _ = serve(t, r, http.MethodGet, "/api/v1/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	v.searchErr = search.ErrSuperseded
	w, _ = serve(t, r, http.MethodGet, "/api/v1/search?q=berlin", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_Settings(t *testing.T) {
	r, v := newTestRouter(t)

	w, env := serve(t, r, http.MethodGet, "/api/v1/settings", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"key":"backgroundOpacity","value":255},{"key":"foregroundZ","value":8}]`, string(env.Data))

	w, env = serve(t, r, http.MethodGet, "/api/v1/settings/rasterTimeToLive", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"key":"rasterTimeToLive","value":10000}`, string(env.Data))

	w, _ = serve(t, r, http.MethodPut, "/api/v1/settings/foregroundZ", `{"value": 11.5}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 11.5, v.values[settings.ForegroundZ])

	w, _ = serve(t, r, http.MethodPut, "/api/v1/settings/rasterRetryDelay", `{"value": 1.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(t, r, http.MethodPut, "/api/v1/settings/foregroundZ", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(t, r, http.MethodGet, "/api/v1/settings/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = serve(t, r, http.MethodDelete, "/api/v1/settings/foregroundZ", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, v.values, settings.ForegroundZ)
}

func TestRouter_StoppedViewer(t *testing.T) {
	r, v := newTestRouter(t)
	v.err = usecase.ErrStopped

	w, env := serve(t, r, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, env.Success)
}

func TestRouter_Metrics(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := serve(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "viewer_raster_evictions_total")
}
