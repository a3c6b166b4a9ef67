package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/StoryTeller-v2/back-end/internal/core/port"
)

const namespace = "storyteller"

// AuthMetrics counts auth operations by outcome.
type AuthMetrics struct {
	operations *prometheus.CounterVec
}

var _ port.OperationMetrics = (*AuthMetrics)(nil)

// NewAuthMetrics registers the auth operation counter with reg, reusing an
// already registered collector of the same shape.
func NewAuthMetrics(reg prometheus.Registerer) (*AuthMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of auth operations partitioned by operation and result.",
	}, []string{"operation", "result"})

	if err := reg.Register(operations); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register auth operations collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing auth operations collector has unexpected type %T", already.ExistingCollector)
		}
		operations = existing
	}

	return &AuthMetrics{operations: operations}, nil
}

// RecordAuthOperation increments the counter for operation/result.
func (m *AuthMetrics) RecordAuthOperation(operation, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, result).Inc()
}
