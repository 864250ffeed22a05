package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cliptozip_videos_processed_total",
		Help: "Total number of videos processed, by outcome",
	}, []string{"outcome"})

	ProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cliptozip_processing_duration_seconds",
		Help:    "Duration of processing pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cliptozip_frames_sampled_total",
		Help: "Total number of frames sampled across all videos",
	})

	InFlightWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cliptozip_inflight_workers",
		Help: "Number of workers currently executing the workflow",
	})

	QueuedTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cliptozip_queued_tasks",
		Help: "Number of tasks waiting for a free worker",
	})

	PoisonMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cliptozip_poison_messages_total",
		Help: "Total number of undecodable inbound messages dropped",
	})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cliptozip_notification_failures_total",
		Help: "Total number of outbound notifications that failed to send",
	})
)
