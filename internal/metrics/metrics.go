// Package metrics exposes capture counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petems/beatcap/internal/audio"
)

const namespace = "beatcap"

// Capture holds the capture collectors. Counter increments are lock-free, so
// the HandoffObserver methods are safe to call on the real-time thread.
type Capture struct {
	registry *prometheus.Registry

	BlocksSent    prometheus.Counter
	BlocksDropped prometheus.Counter
	SendFailures  prometheus.Counter
	StreamFaults  *prometheus.CounterVec
	QueuedBlocks  prometheus.Gauge
	Running       prometheus.Gauge
}

var _ audio.HandoffObserver = (*Capture)(nil)

// New creates the collectors and registers them on a private registry.
func New() *Capture {
	c := &Capture{
		registry: prometheus.NewRegistry(),
		BlocksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_sent_total",
			Help:      "Audio blocks handed to the consumer queue",
		}),
		BlocksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_dropped_total",
			Help:      "Audio blocks dropped because the consumer queue was full",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Audio blocks rejected because no consumer was attached",
		}),
		StreamFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_faults_total",
			Help:      "Faults reported by the audio host after the stream started",
		}, []string{"fault"}),
		QueuedBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_blocks",
			Help:      "Blocks waiting in the consumer queue",
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_running",
			Help:      "1 while a capture session is running",
		}),
	}

	c.registry.MustRegister(
		c.BlocksSent,
		c.BlocksDropped,
		c.SendFailures,
		c.StreamFaults,
		c.QueuedBlocks,
		c.Running,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Capture) BlockSent()    { c.BlocksSent.Inc() }
func (c *Capture) BlockDropped() { c.BlocksDropped.Inc() }
func (c *Capture) SendFailed()   { c.SendFailures.Inc() }

// Faults records n stream faults of the given kind. Not for the real-time thread.
func (c *Capture) Faults(n uint64, f audio.Fault) {
	c.StreamFaults.WithLabelValues(f.String()).Add(float64(n))
}

// SetRunning records whether a session is active.
func (c *Capture) SetRunning(running bool) {
	if running {
		c.Running.Set(1)
	} else {
		c.Running.Set(0)
	}
}

// Registry returns the registry the collectors are registered on.
func (c *Capture) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Capture) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
