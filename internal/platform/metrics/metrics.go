// Package metrics exposes Prometheus instrumentation for the plan workflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	registry *prometheus.Registry

	Transitions         *prometheus.CounterVec
	ScanRuns            *prometheus.CounterVec
	ScanPlanFailures    *prometheus.CounterVec
	AccountsProvisioned prometheus.Counter
}

func New(service string) *Registry {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "plan_transitions_total",
		Help:        "Plan state transition attempts by outcome.",
		ConstLabels: labels,
	}, []string{"target_state", "outcome"})

	scanRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "plan_scan_runs_total",
		Help:        "Periodic scan invocations by scan name.",
		ConstLabels: labels,
	}, []string{"scan"})

	scanPlanFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "plan_scan_plan_failures_total",
		Help:        "Plans that failed during a periodic scan, by scan name.",
		ConstLabels: labels,
	}, []string{"scan"})

	accountsProvisioned := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "supplier_accounts_provisioned_total",
		Help:        "Supplier login accounts created by the auto-provisioner.",
		ConstLabels: labels,
	})

	reg.MustRegister(transitions, scanRuns, scanPlanFailures, accountsProvisioned)

	return &Registry{
		registry:            reg,
		Transitions:         transitions,
		ScanRuns:            scanRuns,
		ScanPlanFailures:    scanPlanFailures,
		AccountsProvisioned: accountsProvisioned,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
