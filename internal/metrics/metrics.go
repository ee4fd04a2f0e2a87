package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DropsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_drops_total",
		Help: "Evaluated drops by outcome",
	}, []string{"outcome"})
	DropDistancePx = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mappuzzle_drop_distance_px",
		Help:    "Distance between drop point and projected centroid in screen pixels",
		Buckets: []float64{5, 10, 25, 50, 75, 100, 150, 250, 500, 1000},
	})
	Score = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mappuzzle_score",
		Help: "Current game score",
	})
	PlacedRegions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mappuzzle_placed_regions",
		Help: "Number of regions placed",
	})
	CatalogRegions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mappuzzle_catalog_regions",
		Help: "Number of regions in the loaded catalog",
	})
	CatalogLoadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_catalog_load_total",
		Help: "Catalog load attempts by source and status",
	}, []string{"source", "status"})
	CatalogLoadDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mappuzzle_catalog_load_duration_ms",
		Help:    "Catalog load duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
	ProjectionCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_projection_cache_hits_total",
		Help: "Projection cache hits by cache",
	}, []string{"cache"})
	ProjectionCacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_projection_cache_misses_total",
		Help: "Projection cache misses by cache",
	}, []string{"cache"})
	BoardResizeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mappuzzle_board_resize_total",
		Help: "Board projection recomputations",
	})
	RedisHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_redis_hits_total",
		Help: "Redis cache hits by keyspace",
	}, []string{"keyspace"})
	RedisMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_redis_misses_total",
		Help: "Redis cache misses by keyspace",
	}, []string{"keyspace"})
	FactRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_fact_requests_total",
		Help: "Fun fact provider requests",
	}, []string{"provider"})
	FactFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_fact_fail_total",
		Help: "Fun fact provider failures",
	}, []string{"provider"})
	FactFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_fact_fallback_total",
		Help: "Fun fact fallbacks by reason",
	}, []string{"reason"})
	FactDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mappuzzle_fact_duration_ms",
		Help:    "Fun fact provider call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"provider"})
	ProviderHeartbeatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_fact_provider_heartbeat_total",
		Help: "Fun fact provider heartbeat count by status",
	}, []string{"provider", "status"})
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_events_published_total",
		Help: "Placement events published by status",
	}, []string{"status"})
	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mappuzzle_ws_connections",
		Help: "Open pointer websocket connections",
	})
	PointerEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mappuzzle_pointer_events_total",
		Help: "Pointer events received by type",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(DropsTotal)
	prometheus.MustRegister(DropDistancePx)
	prometheus.MustRegister(Score)
	prometheus.MustRegister(PlacedRegions)
	prometheus.MustRegister(CatalogRegions)
	prometheus.MustRegister(CatalogLoadTotal)
	prometheus.MustRegister(CatalogLoadDurationMs)
	prometheus.MustRegister(ProjectionCacheHits)
	prometheus.MustRegister(ProjectionCacheMisses)
	prometheus.MustRegister(BoardResizeTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(FactRequestsTotal)
	prometheus.MustRegister(FactFailTotal)
	prometheus.MustRegister(FactFallbackTotal)
	prometheus.MustRegister(FactDurationMs)
	prometheus.MustRegister(ProviderHeartbeatTotal)
	prometheus.MustRegister(EventsPublishedTotal)
	prometheus.MustRegister(WSConnections)
	prometheus.MustRegister(PointerEventsTotal)
}

// 文档注释：返回 Prometheus 指标监听器，在主入口挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }
