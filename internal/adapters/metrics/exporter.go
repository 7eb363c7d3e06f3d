package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/melih/lighthouse-lxc/internal/core/domain"
	"github.com/melih/lighthouse-lxc/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	namespace = "lxc" // For Prometheus metrics.
)

// Exporter collects container state from the ContainerService and exports
// it using the prometheus metrics package.
type Exporter struct {
	mutex   sync.Mutex
	service ports.ContainerService
	timeout time.Duration
	log     logrus.FieldLogger

	errors           *prometheus.CounterVec
	containers       prometheus.Gauge
	running          *prometheus.GaugeVec
	state            *prometheus.GaugeVec
	memoryUsageBytes *prometheus.GaugeVec

	// Totals kept by the kernel, exported as they are read.
	cpuUsageSeconds *prometheus.Desc
	rxBytes         *prometheus.Desc
	txBytes         *prometheus.Desc
}

// NewExporter returns an initialized Exporter. timeout bounds a single
// scrape; zero leaves it unbounded.
func NewExporter(service ports.ContainerService, timeout time.Duration, log logrus.FieldLogger) *Exporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Exporter{
		service: service,
		timeout: timeout,
		log:     log,
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exporter_errors_total",
			Help:      "Errors while exporting container metrics.",
		},
			[]string{"component"},
		),
		containers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "containers",
			Help:      "Number of containers known to the engine.",
		}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "container_running",
			Help:      "Whether the container is running (1) or not (0).",
		},
			[]string{"name"},
		),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "container_state",
			Help:      "Current container state as reported by lxc-info.",
		},
			[]string{"name", "state"},
		),
		memoryUsageBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "container_memory_usage_bytes",
			Help:      "Current memory usage in bytes.",
		},
			[]string{"name"},
		),
		cpuUsageSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "container_cpu_usage_seconds_total"),
			"Total seconds of cpu time consumed.",
			[]string{"name"}, nil,
		),
		rxBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "container_network_rx_bytes_total"),
			"Bytes received by the container.",
			[]string{"name"}, nil,
		),
		txBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "container_network_tx_bytes_total"),
			"Bytes transmitted by the container.",
			[]string{"name"}, nil,
		),
	}
}

// Describe describes all the metrics ever exported. It
// implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	e.errors.Describe(ch)
	e.containers.Describe(ch)
	e.running.Describe(ch)
	e.state.Describe(ch)
	e.memoryUsageBytes.Describe(ch)
	ch <- e.cpuUsageSeconds
	ch <- e.rxBytes
	ch <- e.txBytes
}

// collect sets the gauges and sends the counters read from lxc-info
// straight to ch.
func (e *Exporter) collect(ctx context.Context, ch chan<- prometheus.Metric) error {
	names, err := e.service.List(ctx, domain.FilterNone)
	if err != nil {
		e.errors.WithLabelValues("list").Inc()
		return err
	}
	e.containers.Set(float64(len(names)))

	for _, name := range names {
		info, err := e.service.Info(ctx, name)
		if err != nil {
			// The container may have vanished between list and info.
			e.errors.WithLabelValues("info").Inc()
			e.log.WithError(err).WithField("container", name).Warn("Unable to read container info")
			continue
		}

		if info.Running() {
			e.running.WithLabelValues(name).Set(1)
		} else {
			e.running.WithLabelValues(name).Set(0)
		}
		if s := info.State(); s != "" {
			e.state.WithLabelValues(name, string(s)).Set(1)
		}

		// lxc-info -H reports raw numbers: bytes and nanoseconds.
		if v, ok := number(info, "memory_use"); ok {
			e.memoryUsageBytes.WithLabelValues(name).Set(v)
		}
		if v, ok := number(info, "cpu_use"); ok {
			ch <- prometheus.MustNewConstMetric(e.cpuUsageSeconds, prometheus.CounterValue, v/float64(time.Second), name)
		}
		if v, ok := number(info, "rx_bytes"); ok {
			ch <- prometheus.MustNewConstMetric(e.rxBytes, prometheus.CounterValue, v, name)
		}
		if v, ok := number(info, "tx_bytes"); ok {
			ch <- prometheus.MustNewConstMetric(e.txBytes, prometheus.CounterValue, v, name)
		}
	}
	return nil
}

func number(info domain.Info, key string) (float64, bool) {
	raw, ok := info[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func (e *Exporter) resetMetrics() {
	e.containers.Set(0)
	e.running.Reset()
	e.state.Reset()
	e.memoryUsageBytes.Reset()
}

func (e *Exporter) collectMetrics(metrics chan<- prometheus.Metric) {
	e.containers.Collect(metrics)
	e.running.Collect(metrics)
	e.state.Collect(metrics)
	e.memoryUsageBytes.Collect(metrics)
}

// Collect fetches the stats from the engine and delivers them as
// Prometheus metrics. It implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mutex.Lock() // To protect metrics from concurrent collects.
	defer e.mutex.Unlock()

	ctx := context.Background()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	e.resetMetrics()
	if err := e.collect(ctx, ch); err != nil {
		e.log.WithError(err).Error("Error reading container stats")
	}
	e.collectMetrics(ch)
	e.errors.Collect(ch)
}
