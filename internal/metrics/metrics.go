package metrics

import (
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "netfault"

// PrometheusRecorder implements Recorder using Prometheus metrics
type PrometheusRecorder struct {
	errorsTotal       *prom.CounterVec
	operationDuration *prom.HistogramVec
}

// NewPrometheusRecorder registers its collectors on reg, or on a fresh
// registry when reg is nil. Every canonical code is exported at zero.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		errorsTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Classified errors by canonical code",
		}, []string{"code"}),
		operationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations by name and result",
			Buckets:   prom.DefBuckets,
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(pr.errorsTotal, pr.operationDuration)

	for _, code := range errors.Codes() {
		pr.errorsTotal.WithLabelValues(string(code))
	}

	return pr
}

// Observe counts err under its code. Codes outside the canonical set are
// counted as UnknownError to keep label cardinality bounded.
func (p *PrometheusRecorder) Observe(err errors.Error) {
	if p == nil || err == nil {
		return
	}

	code := err.Code()
	if !code.IsValid() {
		code = errors.ErrUnknownError
	}
	p.errorsTotal.WithLabelValues(string(code)).Inc()
}

// ObserveOperation records how long operation took and counts err when set
func (p *PrometheusRecorder) ObserveOperation(operation string, duration time.Duration, err errors.Error) {
	if p == nil {
		return
	}

	result := ResultSuccess
	if err != nil {
		result = ResultFailure
		p.Observe(err)
	}
	p.operationDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// NoopRecorder discards every observation
type NoopRecorder struct{}

func (NoopRecorder) Observe(errors.Error)                                 {}
func (NoopRecorder) ObserveOperation(string, time.Duration, errors.Error) {}
