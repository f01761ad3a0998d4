// Package telemetry reports enrichment outcomes to operators: a webhook
// sink posting per-run results and batch heartbeats, and Prometheus
// metrics served by the control-plane API.
package telemetry

import "github.com/cratehq/enrich-cli/internal/model"

// Sink receives telemetry events: one result per completed enrichment
// run and one snapshot per advanced batch per worker tick.
type Sink interface {
	RunCompleted(result *model.EnrichmentResult)
	BatchSnapshot(snap model.BatchSnapshot)
}

// Multi fans events out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var active []Sink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return multiSink(active)
}

type multiSink []Sink

func (m multiSink) RunCompleted(result *model.EnrichmentResult) {
	for _, s := range m {
		s.RunCompleted(result)
	}
}

func (m multiSink) BatchSnapshot(snap model.BatchSnapshot) {
	for _, s := range m {
		s.BatchSnapshot(snap)
	}
}
