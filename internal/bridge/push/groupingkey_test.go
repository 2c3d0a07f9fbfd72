package push

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroupingKey_SeededLabels(t *testing.T) {
	runStart := time.UnixMilli(1700000000123)
	key := NewGroupingKey("perf-01", runStart)

	assert.Equal(t, map[string]string{
		"instance":           "perf-01",
		"run_start_epoch_ms": "1700000000123",
	}, key.Snapshot())
}

func TestGroupingKey_SetAddsLabels(t *testing.T) {
	key := NewGroupingKey("perf-01", time.UnixMilli(0))
	key.Set(SimulationLabel, "BasicSimulation")
	key.Set(RunIdLabel, "run-42")

	snapshot := key.Snapshot()
	assert.Equal(t, "BasicSimulation", snapshot[SimulationLabel])
	assert.Equal(t, "run-42", snapshot[RunIdLabel])
}

func TestGroupingKey_SnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	key := NewGroupingKey("perf-01", time.UnixMilli(0))
	before := key.Snapshot()

	key.Set(SimulationLabel, "BasicSimulation")

	assert.NotContains(t, before, SimulationLabel)
	assert.Contains(t, key.Snapshot(), SimulationLabel)
}

func TestGroupingKey_ConcurrentSetAndSnapshot(t *testing.T) {
	key := NewGroupingKey("perf-01", time.UnixMilli(0))

	wg := &sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				key.Set(RunIdLabel, "run")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = key.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "run", key.Snapshot()[RunIdLabel])
}
