// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideafeed_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	SnapshotsBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ideafeed_snapshots_broadcast_total",
		Help: "Full feed snapshots broadcast to realtime subscribers.",
	})

	IdeasCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ideafeed_ideas_created_total",
		Help: "Ideas created.",
	})

	Likes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideafeed_likes_total",
		Help: "Like and unlike operations applied.",
	}, []string{"op"})

	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ideafeed_comments_created_total",
		Help: "Comments created.",
	})

	ClicksRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ideafeed_clicks_recorded_total",
		Help: "Distinct idea clicks recorded.",
	})
)
