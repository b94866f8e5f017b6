package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mam-search-api/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件，path 标签使用路由模板
func Metrics(metricsPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == metricsPath {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method

		c.Next()

		// 路由匹配发生在中间件之后，因此在 Next 之后取模板
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if reqSize := float64(c.Request.ContentLength); reqSize > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(reqSize)
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if respSize := float64(c.Writer.Size()); respSize > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(respSize)
		}
	}
}
