package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StockForecaster/internal/model"
)

// Recorder exports forecast pipeline metrics to Prometheus.
type Recorder struct {
	registry      *prometheus.Registry
	forecasts     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	expectedPrice *prometheus.GaugeVec
	confidence    *prometheus.GaugeVec
	upVotes       *prometheus.GaugeVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecaster_forecasts_total",
				Help: "Total number of forecast attempts by result",
			},
			[]string{"result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecaster_forecast_duration_seconds",
				Help:    "Duration of forecast pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		expectedPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecaster_expected_price",
				Help: "Latest Monte Carlo expected price per source",
			},
			[]string{"source"},
		),
		confidence: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecaster_confidence_percent",
				Help: "Latest classifier confidence per source",
			},
			[]string{"source"},
		),
		upVotes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecaster_up_votes",
				Help: "Latest number of runs voting up per source",
			},
			[]string{"source"},
		),
	}
}

// RecordForecast records a successful forecast for source.
func (r *Recorder) RecordForecast(source string, fc *model.Forecast) {
	r.forecasts.WithLabelValues("success").Inc()
	r.expectedPrice.WithLabelValues(source).Set(fc.ExpectedPrice)
	r.confidence.WithLabelValues(source).Set(fc.ConfidencePercent)
	r.upVotes.WithLabelValues(source).Set(float64(fc.UpVotes))
}

// RecordFailure records a failed forecast attempt.
func (r *Recorder) RecordFailure() {
	r.forecasts.WithLabelValues("failure").Inc()
}

// RecordLatency records the duration of a pipeline stage.
func (r *Recorder) RecordLatency(stage string, d time.Duration) {
	r.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// Handler serves the recorder's metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
