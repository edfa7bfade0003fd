// Package metrics exports ranging readings to Prometheus.
package metrics

import (
	"strconv"

	"github.com/merliot/sonar/ultrasonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sonar_build_info",
			Help: "Build information of the sonar server",
		},
		[]string{"version", "commit", "date"},
	)

	DistanceCentimeters = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sonar_distance_centimeters",
		Help: "Last measured distance",
	}, []string{"thing"})

	EchoTicks = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sonar_echo_ticks",
		Help:    "Echo pulse width in capture timer ticks",
		Buckets: prometheus.ExponentialBuckets(59, 2, 11), // 1cm .. ~10m
	}, []string{"thing"})

	ReadingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonar_readings_total",
		Help: "Total number of readings, by freshness",
	}, []string{"thing", "fresh"})

	Generation = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sonar_echo_generation",
		Help: "Generation of the last latched echo",
	}, []string{"thing"})
)

// Observer records readings into the package metrics
type Observer struct{}

func (Observer) Observe(id string, s ultrasonic.Sample, fresh bool) {
	ReadingsTotal.WithLabelValues(id, strconv.FormatBool(fresh)).Inc()
	if s.Generation == 0 {
		return
	}
	DistanceCentimeters.WithLabelValues(id).Set(float64(s.Centimeters()))
	Generation.WithLabelValues(id).Set(float64(s.Generation))
	if fresh {
		EchoTicks.WithLabelValues(id).Observe(float64(s.Ticks))
	}
}
