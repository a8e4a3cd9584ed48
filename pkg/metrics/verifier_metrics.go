package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/iotaledger/hive.go/ierrors"
)

const (
	labelExitCode = "exit_code"
	labelKind     = "kind"
)

// VerifierMetrics defines metrics over the entire runtime of a transaction verifier.
type VerifierMetrics struct {
	// The number of transactions that passed every script group.
	Accepted atomic.Uint64
	// The number of transactions that were rejected by a script group.
	Rejected atomic.Uint64
	// The number of script groups that were executed.
	ExecutedGroups atomic.Uint64

	verdicts   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	groups     prometheus.Counter
}

// NewVerifierMetrics creates the metrics within the given namespace.
func NewVerifierMetrics(namespace string) *VerifierMetrics {
	return &VerifierMetrics{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verifier",
			Name:      "transactions_total",
			Help:      "Number of verified transactions by verdict.",
		}, []string{labelKind}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verifier",
			Name:      "rejections_total",
			Help:      "Number of rejected transactions by script exit code.",
		}, []string{labelExitCode}),
		groups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verifier",
			Name:      "script_groups_total",
			Help:      "Number of executed script groups.",
		}),
	}
}

// Register registers the prometheus collectors.
func (m *VerifierMetrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range m.Collectors() {
		if err := registerer.Register(collector); err != nil {
			return ierrors.Wrap(err, "failed to register verifier metrics")
		}
	}

	return nil
}

// Collectors returns the prometheus collectors of the metrics.
func (m *VerifierMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.verdicts, m.rejections, m.groups}
}

// TrackGroupExecuted counts an executed script group.
func (m *VerifierMetrics) TrackGroupExecuted() {
	m.ExecutedGroups.Inc()
	m.groups.Inc()
}

// TrackAccepted counts an accepted transaction.
func (m *VerifierMetrics) TrackAccepted() {
	m.Accepted.Inc()
	m.verdicts.WithLabelValues("accepted").Inc()
}

// TrackRejected counts a rejected transaction together with the exit code it was rejected with.
func (m *VerifierMetrics) TrackRejected(exitCode int8) {
	m.Rejected.Inc()
	m.verdicts.WithLabelValues("rejected").Inc()
	m.rejections.WithLabelValues(strconv.Itoa(int(exitCode))).Inc()
}

// RejectionsWithExitCode returns the prometheus counter of rejections with the given exit code.
func (m *VerifierMetrics) RejectionsWithExitCode(exitCode int8) prometheus.Counter {
	return m.rejections.WithLabelValues(strconv.Itoa(int(exitCode)))
}
