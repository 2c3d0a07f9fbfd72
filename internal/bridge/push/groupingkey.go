package push

import (
	"strconv"
	"sync"
	"time"
)

const (
	instanceLabel   = "instance"
	runStartLabel   = "run_start_epoch_ms"
	SimulationLabel = "simulation"
	RunIdLabel      = "runId"
)

// GroupingKey is the mutable label set attached to every push and delete.
// Ingestion goroutines add labels as run context becomes available while the
// scheduler reads it at push time, so every read goes through Snapshot rather
// than handing out the live map.
type GroupingKey struct {
	mu     sync.Mutex
	labels map[string]string
}

// NewGroupingKey seeds the label set with the configured instance and the
// wall-clock run start in epoch milliseconds.
func NewGroupingKey(instance string, runStart time.Time) *GroupingKey {
	return &GroupingKey{
		labels: map[string]string{
			instanceLabel: instance,
			runStartLabel: strconv.FormatInt(runStart.UnixMilli(), 10),
		},
	}
}

func (k *GroupingKey) Set(name string, value string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.labels[name] = value
}

// Snapshot returns an immutable copy of the current labels.
func (k *GroupingKey) Snapshot() map[string]string {
	k.mu.Lock()
	defer k.mu.Unlock()
	copied := make(map[string]string, len(k.labels))
	for name, value := range k.labels {
		copied[name] = value
	}
	return copied
}
