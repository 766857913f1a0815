package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_posted_total",
		Help: "Total chat messages persisted",
	})

	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_groups_created_total",
		Help: "Total chat groups created lazily on first message",
	})

	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_broadcasts_total",
		Help: "Total room broadcasts by event",
	}, []string{"event"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Currently open websocket connections",
	})

	DroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_ws_dropped_frames_total",
		Help: "Frames dropped because a subscriber send buffer was full",
	})

	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_rate_limit_hits_total",
		Help: "Requests rejected by the per-IP rate limiter",
	})
)

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
