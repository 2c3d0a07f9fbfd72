package ingest

import (
	"strings"

	"github.com/gatling-contrib/prombridge/internal/bridge/metrics"
)

const koStatus = "KO"

// Ingestor applies incoming events to the metric store and the response time
// aggregator. Handle is safe for concurrent use.
type Ingestor struct {
	store      *metrics.Store
	aggregator *metrics.Aggregator
}

func NewIngestor(store *metrics.Store, aggregator *metrics.Aggregator) *Ingestor {
	return &Ingestor{
		store:      store,
		aggregator: aggregator,
	}
}

// Handle dispatches an event by variant. Event kinds the bridge does not
// know are ignored, so newer host versions can emit new kinds without
// breaking older bridges.
func (i *Ingestor) Handle(event Event) {
	switch e := event.(type) {
	case UserStart:
		i.store.IncUsersStarted(e.Scenario)
	case UserEnd:
		i.store.IncUsersFinished(e.Scenario)
	case Response:
		i.handleResponse(e)
	}
}

func (i *Ingestor) handleResponse(response Response) {
	// Negative durations from inconsistent host clocks are passed through.
	durationMs := response.EndTimestampMs - response.StartTimestampMs

	i.store.IncRequest(response.Name, response.Group, response.Status)
	i.store.ObserveResponseSeconds(response.Name, response.Group, response.Status, float64(durationMs)/1000.0)
	if strings.EqualFold(response.Status, koStatus) {
		i.store.IncError(response.Name, response.Group)
	}

	i.aggregator.Record(durationMs)
	i.RefreshResponseTimeGauges()
}

// RefreshResponseTimeGauges recomputes the four scalar response time gauges
// from the aggregator. Called after every response and once more during stop
// so the final push carries up-to-date aggregates.
func (i *Ingestor) RefreshResponseTimeGauges() {
	state := i.aggregator.Snapshot()
	if state.Count == 0 {
		return
	}
	i.store.SetResponseTimeGauges(float64(state.Min), float64(state.Max), state.Mean, state.StdDev())
}
