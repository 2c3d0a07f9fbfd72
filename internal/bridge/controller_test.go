package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatling-contrib/prombridge/internal/bridge/configuration"
	"github.com/gatling-contrib/prombridge/internal/bridge/ingest"
	"github.com/gatling-contrib/prombridge/internal/bridge/push"
	"github.com/gatling-contrib/prombridge/internal/common/util"
)

func TestController_InitStartsRunningAndPushesFirstTick(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)

	assert.Equal(t, StateRunning, controller.State())
	assert.Eventually(t, func() bool {
		return fake.pushCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestController_InitIsIdempotent(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	controller.Init(quietConfig(), nil, nil)

	assert.Eventually(t, func() bool {
		return fake.pushCount() == 1
	}, time.Second, 5*time.Millisecond)

	// A second scheduler would produce a second immediate push.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, fake.pushCount())
}

func TestController_SetupFailureLeavesEveryEntryPointANoop(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.newPushClient = func(configuration.Settings) (push.Client, error) {
		return nil, errors.New("malformed target")
	}

	controller.Init(quietConfig(), nil, nil)

	assert.Equal(t, StateInit, controller.State())
	controller.Handle(ingest.UserStart{Scenario: "S"}, nil)
	controller.Flush(nil)
	controller.Stop(nil)
	controller.Crash("boom", nil)
	assert.Equal(t, 0, fake.pushCount())
	assert.Equal(t, 0, fake.deleteCount())
}

func TestController_StopForcesFinalPushAndDelete(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	controller.Stop(nil)

	assert.Equal(t, StateStopping, controller.State())
	assert.Equal(t, 2, fake.pushCount())
	assert.Equal(t, 1, fake.deleteCount())
}

func TestController_StopHonoursDeleteOnStopFalse(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(configuration.MapSource{configuration.KeyDeleteOnStop: "false"}), nil, nil)
	waitForPushes(t, fake, 1)

	controller.Stop(nil)

	assert.Equal(t, 0, fake.deleteCount())
}

func TestController_StopIsTerminal(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	controller.Stop(nil)
	pushesAfterStop := fake.pushCount()

	controller.Handle(ingest.UserStart{Scenario: "S"}, nil)
	controller.Flush(nil)
	controller.Stop(nil)
	assert.Equal(t, pushesAfterStop, fake.pushCount())
}

func TestController_StopRecomputesAggregateGauges(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	for _, duration := range []int64{120, 80, 100} {
		controller.Handle(ingest.Response{
			Name:           "r",
			Status:         "OK",
			EndTimestampMs: duration,
		}, nil)
	}
	controller.Stop(nil)

	state := controller.aggregator.Snapshot()
	assert.Equal(t, uint64(3), state.Count)
	assert.Equal(t, int64(80), state.Min)
	assert.Equal(t, int64(120), state.Max)
}

func TestController_StopPushErrorsDoNotAbortCleanup(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	fake.failWith(errors.New("gateway down"))
	controller.Stop(nil)

	// Push failed, delete was still attempted, state is terminal.
	assert.Equal(t, 1, fake.deleteCount())
	assert.Equal(t, StateStopping, controller.State())
}

func TestController_CrashPushesBestEffort(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	controller.Crash("simulation blew up", nil)

	assert.Equal(t, StateCrashed, controller.State())
	assert.Equal(t, 2, fake.pushCount())
	assert.Equal(t, 0, fake.deleteCount())

	// No transition out of Crashed.
	controller.Stop(nil)
	assert.Equal(t, StateCrashed, controller.State())
}

func TestController_CrashNeverPanicsEvenWhenPushFails(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	fake.failWith(errors.New("gateway down"))
	assert.NotPanics(t, func() {
		controller.Crash("simulation blew up", nil)
	})
}

func TestController_HandleMergesRunContextIntoGroupingKey(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	controller.Handle(ingest.UserStart{Scenario: "S"}, &RunInfo{
		Simulation: "BasicSimulation",
		RunId:      "run-42",
	})
	controller.Flush(nil)

	groupingKey := fake.lastGroupingKey()
	assert.Equal(t, "BasicSimulation", groupingKey[push.SimulationLabel])
	assert.Equal(t, "run-42", groupingKey[push.RunIdLabel])
	assert.Equal(t, "default", groupingKey["instance"])
	assert.Equal(t, "1700000000000", groupingKey["run_start_epoch_ms"])
}

func TestController_FlushPushesOutsideSchedule(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	controller.Flush(nil)
	controller.Flush(nil)

	assert.Equal(t, 3, fake.pushCount())
}

func TestController_HandleIsSafeForConcurrentCallers(t *testing.T) {
	controller, fake := setupControllerTest(nil)
	controller.Init(quietConfig(), nil, nil)
	waitForPushes(t, fake, 1)

	wg := &sync.WaitGroup{}
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				controller.Handle(ingest.UserStart{Scenario: "S"}, nil)
				controller.Handle(ingest.Response{Name: "r", Status: "OK", EndTimestampMs: 10}, nil)
				controller.Handle(ingest.UserEnd{Scenario: "S"}, nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8*200), controller.aggregator.Snapshot().Count)
}

// fakePushClient records pushes and deletes in place of a real Pushgateway.
type fakePushClient struct {
	mu          sync.Mutex
	pushes      int
	deletes     int
	groupingKey map[string]string
	err         error
}

func (f *fakePushClient) Push(gatherer prometheus.Gatherer, groupingKey map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushes++
	f.groupingKey = groupingKey
	return nil
}

func (f *fakePushClient) Delete(groupingKey map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

func (f *fakePushClient) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes
}

func (f *fakePushClient) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

func (f *fakePushClient) lastGroupingKey() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groupingKey
}

func (f *fakePushClient) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func setupControllerTest(clock util.Clock) (*Controller, *fakePushClient) {
	if clock == nil {
		clock = &util.DummyClock{T: time.UnixMilli(1700000000000)}
	}
	fake := &fakePushClient{}
	controller := New()
	controller.clock = clock
	controller.newPushClient = func(configuration.Settings) (push.Client, error) {
		return fake, nil
	}
	return controller, fake
}

// quietConfig keeps the push period far away so tests only observe the
// immediate first tick plus explicit pushes.
func quietConfig(sources ...configuration.MapSource) configuration.ConfigSource {
	merged := configuration.MapSource{configuration.KeyPushPeriodSeconds: "3600"}
	for _, source := range sources {
		for key, value := range source {
			merged[key] = value
		}
	}
	return merged
}

func waitForPushes(t *testing.T, fake *fakePushClient, expected int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return fake.pushCount() >= expected
	}, time.Second, 5*time.Millisecond)
}
