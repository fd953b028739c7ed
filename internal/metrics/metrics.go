package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoreel_images_processed_total",
		Help: "Total number of images analyzed, by outcome",
	}, []string{"outcome"})

	CaptionsMissingTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photoreel_captions_missing_total",
		Help: "Replies from the vision model without a recognizable caption marker",
	})

	VisionRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "photoreel_vision_request_duration_seconds",
		Help:    "Duration of vision model requests",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	CatalogErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photoreel_catalog_errors_total",
		Help: "Results that could not be written to the Postgres catalog",
	})

	ClipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photoreel_clips_total",
		Help: "Reel clips by outcome",
	}, []string{"outcome"})

	ReelEncodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "photoreel_reel_encode_duration_seconds",
		Help:    "Duration of the final ffmpeg encode",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})
)

// WriteTextfile dumps the default registry in the node exporter textfile
// format. Batch runs are too short-lived to be scraped.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
