package usecase

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIssuerMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewIssuerMetrics(reg)
	if err != nil {
		t.Fatalf("NewIssuerMetrics: %v", err)
	}

	m.Login(OutcomeSuccess)
	m.Login(OutcomeSuccess)
	m.Login(OutcomeFailure)
	m.Refresh(OutcomeInvalid)
	m.GuardBlock(ScopeLoginByEmail)

	if got := testutil.ToFloat64(m.logins.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Fatalf("login successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.logins.WithLabelValues(OutcomeFailure)); got != 1 {
		t.Fatalf("login failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.refreshes.WithLabelValues(OutcomeInvalid)); got != 1 {
		t.Fatalf("invalid refreshes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.blocks.WithLabelValues(ScopeLoginByEmail)); got != 1 {
		t.Fatalf("guard blocks = %v, want 1", got)
	}
}

func TestIssuerMetricsNilReceiverIsNoop(t *testing.T) {
	var m *IssuerMetrics
	m.Login(OutcomeSuccess)
	m.Refresh(OutcomeSuccess)
	m.GuardBlock(ScopeRegister)
}

func TestIssuerMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewIssuerMetrics(reg)
	if err != nil {
		t.Fatalf("first NewIssuerMetrics: %v", err)
	}
	second, err := NewIssuerMetrics(reg)
	if err != nil {
		t.Fatalf("second NewIssuerMetrics: %v", err)
	}

	first.Login(OutcomeSuccess)
	second.Login(OutcomeSuccess)
	if got := testutil.ToFloat64(second.logins.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Fatalf("shared login counter = %v, want 2", got)
	}
}
