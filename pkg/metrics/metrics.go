package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "auditlog"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	Client = "client"
	Ledger = "ledger"
	API    = "api"
)

// Labels holds constant labels applied to all metrics.
// These are useful for distinguishing metrics from multiple audit log instances.
type Labels struct {
	EVMChainID    uint64 // EVM chain ID of the ledger network (0 for off-chain backends)
	Backend       string // Ledger backend (e.g., "evm", "clickhouse", "memory")
	Environment   string // Deployment environment (e.g., "production", "staging", "development")
	Region        string // Cloud region (e.g., "us-east-1", "eu-west-1")
	CloudProvider string // Cloud provider (e.g., "aws", "oci", "gcp")
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.EVMChainID != 0 {
		labels["evm_chain_id"] = strconv.FormatUint(l.EVMChainID, 10)
	}
	if l.Backend != "" {
		labels["backend"] = l.Backend
	}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Region != "" {
		labels["region"] = l.Region
	}
	if l.CloudProvider != "" {
		labels["cloud_provider"] = l.CloudProvider
	}
	return labels
}

type Metrics struct {
	// Client operations
	submissions        *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	fetches            *prometheus.CounterVec
	fetchDuration      prometheus.Histogram
	entriesFetched     prometheus.Counter
	errors             *prometheus.CounterVec

	// Ledger RPC metrics
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	rpcInFlight prometheus.Gauge

	// Ledger state
	totalEntries prometheus.Gauge
	lastPoll     prometheus.Gauge

	// HTTP API
	apiRequests *prometheus.CounterVec
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
// Returns an error if any metric registration fails.
// For metrics with constant labels (e.g., evm_chain_id), use NewWithLabels instead.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	// 1ms .. 30s; chain writes wait for a mined receipt.
	buckets := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Client,
			Name:      "submissions_total",
			Help:      "Total log submissions by status",
		}, []string{"status"}),
		submissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Client,
			Name:      "submission_duration_seconds",
			Help:      "Time from submit call to confirmed receipt",
			Buckets:   buckets,
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Client,
			Name:      "fetches_total",
			Help:      "Total log fetches by status",
		}, []string{"status"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Client,
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch a batch of log records",
			Buckets:   buckets,
		}),
		entriesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Client,
			Name:      "entries_fetched_total",
			Help:      "Total log records returned by fetches",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"type"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Total ledger calls by method and status",
		}, []string{"method", "status"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "Ledger call duration in seconds",
			Buckets:   buckets,
		}, []string{"method"}),
		rpcInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "in_flight",
			Help:      "Number of ledger calls currently in progress",
		}),
		totalEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Ledger,
			Name:      "total_entries",
			Help:      "Number of entries in the monitored ledger at the last poll",
		}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Ledger,
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last successful ledger poll",
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: API,
			Name:      "requests_total",
			Help:      "Total HTTP API requests by route and status code",
		}, []string{"route", "code"}),
	}

	err := errors.Join(
		reg.Register(m.submissions),
		reg.Register(m.submissionDuration),
		reg.Register(m.fetches),
		reg.Register(m.fetchDuration),
		reg.Register(m.entriesFetched),
		reg.Register(m.errors),
		reg.Register(m.rpcCalls),
		reg.Register(m.rpcDuration),
		reg.Register(m.rpcInFlight),
		reg.Register(m.totalEntries),
		reg.Register(m.lastPoll),
		reg.Register(m.apiRequests),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Error type constants for non-RPC errors (RPC errors are tracked via rpcCalls{status="error"}).
const (
	ErrTypeValidation    = "validation"
	ErrTypeConfiguration = "configuration"
	ErrTypeTransport     = "transport"
	ErrTypeOutOfRange    = "out_of_range"
	ErrTypePoll          = "poll"
)

// IncError increments the error counter for the given error type.
func (m *Metrics) IncError(errType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errType).Inc()
}

// RecordSubmission records a submit outcome with its duration.
func (m *Metrics) RecordSubmission(err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status(err)).Inc()
	m.submissionDuration.Observe(durationSeconds)
}

// RecordFetch records a fetch outcome, its duration and the number of records returned.
func (m *Metrics) RecordFetch(err error, durationSeconds float64, count int) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(status(err)).Inc()
	m.fetchDuration.Observe(durationSeconds)
	if count > 0 {
		m.entriesFetched.Add(float64(count))
	}
}

// IncRPCInFlight increments the in-flight RPC gauge.
func (m *Metrics) IncRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Inc()
}

// DecRPCInFlight decrements the in-flight RPC gauge.
func (m *Metrics) DecRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Dec()
}

// RecordRPCCall records a ledger call outcome.
func (m *Metrics) RecordRPCCall(method string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(method, status(err)).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// UpdateLedgerTotal sets the observed entry count and the poll timestamp.
func (m *Metrics) UpdateLedgerTotal(total uint64, unixSeconds int64) {
	if m == nil {
		return
	}
	m.totalEntries.Set(float64(total))
	m.lastPoll.Set(float64(unixSeconds))
}

// RecordAPIRequest counts an HTTP API request.
func (m *Metrics) RecordAPIRequest(route string, code int) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
