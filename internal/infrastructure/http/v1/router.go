package v1

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/viewer/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// quietPaths are polled continuously and only logged at debug level.
var quietPaths = map[string]bool{
	"/api/v1/healthz":   true,
	"/api/v1/frame.png": true,
	"/metrics":          true,
}

func NewRouter(handler *handler.Handler, l logger.Logger, telemetryEnabled bool, serviceName string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	// Add OpenTelemetry middleware if enabled
	if telemetryEnabled {
		r.Use(telemetry.GinMiddleware(serviceName))
	}

	r.Use(ginZapLogger(l))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", handler.Healthz)
	v1.GET("/frame.png", handler.Frame)

	v1.GET("/location", handler.Location)
	v1.PUT("/location", handler.SetLocation)
	v1.GET("/share", handler.Share)

	v1.POST("/zoom", handler.Zoom)
	v1.POST("/zoom/step", handler.StepZoom)
	v1.POST("/drag", handler.Drag)
	v1.POST("/navigate", handler.Navigate)
	v1.POST("/resize", handler.Resize)

	v1.GET("/stats", handler.Stats)
	v1.GET("/search", handler.Search)

	v1.GET("/settings", handler.Settings)
	v1.GET("/settings/:key", handler.Setting)
	v1.PUT("/settings/:key", handler.SetSetting)
	v1.DELETE("/settings/:key", handler.ClearSetting)

	// Prometheus metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("logger", l)

		start := time.Now()

		c.Next()

		latency := time.Since(start)

		log := l.Info
		if quietPaths[c.Request.URL.Path] && c.Writer.Status() < 400 {
			log = l.Debug
		}
		log("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}
