// Package metrics exposes Prometheus collectors for bridge instances.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Init outcomes recorded by InitOutcomes.
const (
	OutcomeReady  = "ready"
	OutcomeBenign = "benign"
	OutcomeError  = "error"
)

var (
	// Instances tracks live lifecycle managers by state.
	Instances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wasmbridge",
			Subsystem: "lifecycle",
			Name:      "instances",
			Help:      "Bridge instances by lifecycle state",
		},
		[]string{"state"},
	)

	// InitOutcomes counts settled initializations.
	InitOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wasmbridge",
			Subsystem: "lifecycle",
			Name:      "init_total",
			Help:      "Foreign module initializations by outcome",
		},
		[]string{"outcome"},
	)

	// OwnershipSteals counts claims of the global hooks while another instance owned them.
	OwnershipSteals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wasmbridge",
			Subsystem: "hooks",
			Name:      "ownership_steals_total",
			Help:      "Global hook claims that displaced a live owner",
		},
	)

	// Events counts events crossing the bridge.
	Events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wasmbridge",
			Subsystem: "bridge",
			Name:      "events_total",
			Help:      "Events by direction",
		},
		[]string{"direction"},
	)

	// HandlerPanics counts recovered inbound subscriber panics.
	HandlerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wasmbridge",
			Subsystem: "bridge",
			Name:      "handler_panics_total",
			Help:      "Inbound handler panics recovered during dispatch",
		},
	)

	// DiscardedEnvelopes counts envelopes dropped by receivers.
	DiscardedEnvelopes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wasmbridge",
			Subsystem: "protocol",
			Name:      "discarded_envelopes_total",
			Help:      "Envelopes dropped by a receiver",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(Instances, InitOutcomes, OwnershipSteals, Events, HandlerPanics, DiscardedEnvelopes)
}
