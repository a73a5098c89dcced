package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examprep_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SelectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examprep_selection_duration_seconds",
			Help:    "Duration of adaptive question selection",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	SelectionEmpty = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_selection_empty_total",
			Help: "Number of selections that returned no questions",
		},
		[]string{"reason"},
	)

	ActiveTimerSockets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "examprep_session_timer_connections",
			Help: "Open websocket connections streaming session timers",
		},
	)
)

var initOnce sync.Once

// Init регистрирует коллекторы в реестре по умолчанию. Повторный вызов безопасен.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(SelectionDuration)
		prometheus.MustRegister(SelectionEmpty)
		prometheus.MustRegister(ActiveTimerSockets)
	})
}

// ObserveSelection фиксирует длительность подбора вопросов
func ObserveSelection(mode string, elapsed time.Duration) {
	SelectionDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// CountEmptySelection увеличивает счетчик пустых выборок
func CountEmptySelection(reason string) {
	SelectionEmpty.WithLabelValues(reason).Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
