package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stt"

// Recorder collects per-invocation transcription metrics. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	transcriptions *prometheus.CounterVec
	errors         *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	audioSeconds   *prometheus.CounterVec
	downloadBytes  prometheus.Counter
}

// NewRecorder creates a recorder backed by its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription attempts by engine and outcome.",
		}, []string{"engine", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Failed transcriptions by engine and error code.",
		}, []string{"engine", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Wall time spent loading the model and transcribing.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"engine"}),
		audioSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_total",
			Help:      "Seconds of audio successfully transcribed.",
		}, []string{"engine"}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_download_bytes_total",
			Help:      "Bytes of model weights downloaded.",
		}),
	}

	r.registry.MustRegister(r.transcriptions, r.errors, r.duration, r.audioSeconds, r.downloadBytes)
	return r
}

// RecordSuccess records a successful transcription
func (r *Recorder) RecordSuccess(engine string, elapsed time.Duration, audioSec float64) {
	if r == nil {
		return
	}
	r.transcriptions.WithLabelValues(engine, "success").Inc()
	r.duration.WithLabelValues(engine).Observe(elapsed.Seconds())
	if audioSec > 0 {
		r.audioSeconds.WithLabelValues(engine).Add(audioSec)
	}
}

// RecordFailure records a failed transcription
func (r *Recorder) RecordFailure(engine string, code string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.transcriptions.WithLabelValues(engine, "failure").Inc()
	r.errors.WithLabelValues(engine, code).Inc()
	r.duration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// RecordDownload adds n downloaded weight bytes.
func (r *Recorder) RecordDownload(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.downloadBytes.Add(float64(n))
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format for the
// node_exporter textfile collector. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
