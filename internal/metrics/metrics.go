package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "digistore"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// 作成された注文（source=cart|direct）
	OrdersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created by checkout source.",
		},
		[]string{"source"},
	)

	// 注文ステータス遷移（to=paid|failed|refunded）
	OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions.",
		},
		[]string{"to"},
	)

	// 決済コールバックの結果（applied|noop|replay|rejected）
	PaymentCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "callbacks_total",
			Help:      "Payment callbacks by result.",
		},
		[]string{"result"},
	)

	Downloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "total",
			Help:      "Download attempts by result.",
		},
		[]string{"result"},
	)

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Catalog cache hits.",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Catalog cache misses.",
	})
)

var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(
		RequestDuration,
		RequestTotal,
		OrdersCreated,
		OrderTransitions,
		PaymentCallbacks,
		Downloads,
		CacheHits,
		CacheMisses,
	)
}

// echo のルートパターン（/products/:slug/）でラベルを付ける
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method

			RequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			RequestTotal.WithLabelValues(method, path, status).Inc()
			return nil
		}
	}
}

func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
