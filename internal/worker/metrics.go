package worker

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	tasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_worker_tasks_processed_total",
			Help: "Total number of media generation tasks processed.",
		},
		[]string{"kind", "status"}, // status: success, discarded, timed_out, error_generation, error_publish, error_unmarshal
	)
	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyboard_worker_task_duration_seconds",
			Help:    "Duration of media generation task processing.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"kind"},
	)
	publishResultErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_worker_publish_result_errors_total",
		Help: "Total number of errors publishing task notifications.",
	})
)

// newPusher builds a Pushgateway pusher grouped by worker instance.
func newPusher(pushGatewayURL string) *push.Pusher {
	hostname, _ := os.Hostname()
	return push.New(pushGatewayURL, "storyboard-worker").
		Grouping("instance", hostname).
		Gatherer(prometheus.DefaultGatherer)
}
