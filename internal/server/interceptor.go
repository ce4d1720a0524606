package server

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exploration",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "exploration",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	grpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exploration",
		Name:      "grpc_requests_total",
		Help:      "gRPC requests by method and outcome.",
	}, []string{"method", "status"})
)

// RequestMetrics records the count and latency of every routed request.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		reqTime := time.Since(start)
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(reqTime.Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		logrus.Debugf("request time: %s %s: %v", c.Request.Method, route, reqTime)
	}
}

func UnaryGrpcRequestTimeInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		reqTime := time.Since(start)

		status := "success"
		if err != nil {
			status = "error"
		}
		grpcRequestsTotal.WithLabelValues(info.FullMethod, status).Inc()
		logrus.Infof("request time: %v: %v", info.FullMethod, reqTime)
		return resp, err
	}
}
