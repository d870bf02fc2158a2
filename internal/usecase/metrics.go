package usecase

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Authentication outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeBlocked = "blocked"
	OutcomeInvalid = "invalid"
)

// IssuerMetrics counts authentication outcomes. A nil receiver disables
// collection, so services can run without a registry in tests.
type IssuerMetrics struct {
	logins    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	blocks    *prometheus.CounterVec
}

func NewIssuerMetrics(reg prometheus.Registerer) (*IssuerMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &IssuerMetrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "issuer",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "issuer",
			Name:      "refreshes_total",
			Help:      "Refresh rotations by outcome.",
		}, []string{"outcome"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "guard",
			Name:      "blocks_total",
			Help:      "Abuse guard blocks installed, by scope.",
		}, []string{"scope"}),
	}

	for name, collector := range map[string]*prometheus.CounterVec{
		"logins":    m.logins,
		"refreshes": m.refreshes,
		"blocks":    m.blocks,
	} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					switch name {
					case "logins":
						m.logins = existing
					case "refreshes":
						m.refreshes = existing
					case "blocks":
						m.blocks = existing
					}
					continue
				}
			}
			return nil, fmt.Errorf("register %s counter: %w", name, err)
		}
	}
	return m, nil
}

func (m *IssuerMetrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *IssuerMetrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *IssuerMetrics) GuardBlock(scope string) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(scope).Inc()
}
