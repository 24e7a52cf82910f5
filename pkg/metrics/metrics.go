package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RasterFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_raster_fetches_total",
		Help: "Total number of raster fetch attempts by result",
	}, []string{"result"})

	RasterFetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "viewer_raster_fetch_latency_seconds",
		Help:    "Latency of raster fetch attempts in seconds",
		Buckets: prometheus.DefBuckets,
	})

	RasterEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "viewer_raster_evictions_total",
		Help: "Total number of rasters evicted after their time to live",
	})

	RasterRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "viewer_raster_refreshes_total",
		Help: "Total number of hot refreshes started",
	})

	RasterStats = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "viewer_raster_stats",
		Help: "Raster cache statistics as of the last frame",
	}, []string{"stat"})

	FrameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "viewer_frame_duration_seconds",
		Help:    "Time spent rendering a frame in seconds",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_search_requests_total",
		Help: "Total number of geocoding searches by result",
	}, []string{"result"})
)
