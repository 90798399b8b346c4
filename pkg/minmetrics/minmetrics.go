// Package minmetrics exposes transport counters from one or more
// min.Context instances as Prometheus metrics.
package minmetrics

import (
	"sync"

	"github.com/min-protocol/min-go/pkg/min"
	"github.com/prometheus/client_golang/prometheus"
)

type session struct {
	ctx    *min.Context
	labels []string
}

// Collector is a prometheus.Collector exposing the per-Context
// transport counters and gauges, the same Describe/Collect shape
// exporter.TCPInfoCollector uses for kernel socket statistics.
type Collector struct {
	mu       sync.Mutex
	sessions map[string]session

	spuriousAcks         *prometheus.Desc
	sequenceMismatchDrop *prometheus.Desc
	resetsReceived       *prometheus.Desc
	fifoDepth            *prometheus.Desc
	windowSize           *prometheus.Desc
}

// NewCollector builds a Collector. labelNames are the label keys every
// registered session must supply values for (e.g. "peer").
func NewCollector(labelNames []string, constLabels prometheus.Labels) *Collector {
	mk := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("min_"+name, help, labelNames, constLabels)
	}
	return &Collector{
		sessions:             make(map[string]session),
		spuriousAcks:         mk("spurious_acks_total", "ACKs referencing a seq outside the send window"),
		sequenceMismatchDrop: mk("sequence_mismatch_drop_total", "transport frames dropped for an unexpected seq"),
		resetsReceived:       mk("resets_received_total", "RESET control frames received"),
		fifoDepth:            mk("transport_fifo_depth", "frames currently queued in the transport FIFO"),
		windowSize:           mk("transport_window_size", "frames currently in flight in the send window"),
	}
}

// Add registers a Context under name with the given label values,
// ordered to match labelNames passed to NewCollector.
func (c *Collector) Add(name string, ctx *min.Context, labelValues []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[name] = session{ctx: ctx, labels: labelValues}
}

// Remove stops exporting the named Context.
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, name)
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.spuriousAcks
	descs <- c.sequenceMismatchDrop
	descs <- c.resetsReceived
	descs <- c.fifoDepth
	descs <- c.windowSize
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.sessions {
		metrics <- prometheus.MustNewConstMetric(c.spuriousAcks, prometheus.CounterValue, float64(s.ctx.GetSpuriousAckCnt()), s.labels...)
		metrics <- prometheus.MustNewConstMetric(c.sequenceMismatchDrop, prometheus.CounterValue, float64(s.ctx.GetDropCnt()), s.labels...)
		metrics <- prometheus.MustNewConstMetric(c.resetsReceived, prometheus.CounterValue, float64(s.ctx.GetResetCnt()), s.labels...)
		metrics <- prometheus.MustNewConstMetric(c.fifoDepth, prometheus.GaugeValue, float64(s.ctx.TransportFifoDepth()), s.labels...)
		metrics <- prometheus.MustNewConstMetric(c.windowSize, prometheus.GaugeValue, float64(s.ctx.TransportWindowSize()), s.labels...)
	}
}
