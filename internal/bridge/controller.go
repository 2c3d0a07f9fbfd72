package bridge

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/gatling-contrib/prombridge/internal/bridge/configuration"
	"github.com/gatling-contrib/prombridge/internal/bridge/ingest"
	"github.com/gatling-contrib/prombridge/internal/bridge/metrics"
	"github.com/gatling-contrib/prombridge/internal/bridge/push"
	"github.com/gatling-contrib/prombridge/internal/bridge/scheduler"
	"github.com/gatling-contrib/prombridge/internal/common/util"
)

const schedulerShutdownTimeout = 5 * time.Second

// RunInfo is optional run context supplied by the host alongside events.
// Non-empty fields are merged into the push grouping key.
type RunInfo struct {
	Simulation string
	RunId      string
}

// Controller owns every bridge component and sequences their lifecycle. It
// is a telemetry side channel: every public entry point recovers internal
// panics and degrades to a no-op, so a broken bridge can never take the host
// process down with it.
type Controller struct {
	state       int32 // State, accessed atomically
	initialised bool

	clock         util.Clock
	newPushClient func(configuration.Settings) (push.Client, error)

	settings    configuration.Settings
	store       *metrics.Store
	aggregator  *metrics.Aggregator
	ingestor    *ingest.Ingestor
	groupingKey *push.GroupingKey
	pushClient  push.Client
	tasks       *scheduler.TaskManager
}

func New() *Controller {
	return &Controller{
		clock: &util.DefaultClock{},
		newPushClient: func(settings configuration.Settings) (push.Client, error) {
			return push.NewPushgatewayClient(settings)
		},
	}
}

// Init resolves configuration and constructs the metric store, aggregator,
// grouping key, push client and scheduler, then starts periodic pushing.
// Calling Init again after a successful setup is a no-op. If setup fails the
// controller stays uninitialised and every other entry point is a no-op.
//
// Init is expected to be called once from a single goroutine before events
// start flowing; it is not safe to race Init against itself.
func (c *Controller) Init(fileSource configuration.ConfigSource, overrides map[string]string, env func(string) string) {
	defer recoverToLog("init")

	if c.initialised {
		return
	}

	settings := configuration.Resolve(fileSource, overrides, env)

	client, err := c.newPushClient(settings)
	if err != nil {
		log.Errorf("Bridge setup failed: %s", err)
		return
	}

	c.settings = settings
	c.store = metrics.NewStore(settings.HistogramBucketsMs)
	c.aggregator = metrics.NewAggregator()
	c.ingestor = ingest.NewIngestor(c.store, c.aggregator)
	c.groupingKey = push.NewGroupingKey(settings.Instance, c.clock.Now())
	c.pushClient = client

	c.tasks = scheduler.NewTaskManager(metrics.MetricsPrefix+"bridge_", prometheus.NewRegistry())
	c.tasks.Register(c.tick, time.Duration(settings.PushPeriodSeconds)*time.Second, "push")

	c.initialised = true
	c.setState(StateRunning)
	log.Infof("Bridge initialised: %s", settings)
}

// Handle applies one host event and opportunistically merges run context
// into the grouping key. Safe to call from many goroutines at once.
func (c *Controller) Handle(event ingest.Event, info *RunInfo) {
	defer recoverToLog("handle")

	if c.State() != StateRunning {
		return
	}
	c.ingestor.Handle(event)
	c.mergeRunInfo(info)
}

// Flush pushes the current snapshot immediately, outside the periodic
// schedule.
func (c *Controller) Flush(info *RunInfo) {
	defer recoverToLog("flush")

	if c.State() != StateRunning {
		return
	}
	c.mergeRunInfo(info)
	c.pushSnapshot()
}

// Stop halts the scheduler, recomputes the final aggregate gauges, forces a
// last push and, if configured, deletes the pushed group. Cleanup runs as far
// as possible even when individual steps fail; errors are collected and
// logged once. Stop is terminal.
func (c *Controller) Stop(info *RunInfo) {
	defer recoverToLog("stop")

	if !c.initialised || !c.transition(StateRunning, StateStopping) {
		return
	}
	if info != nil && info.Simulation != "" {
		log.Infof("Stopping simulation %s", info.Simulation)
	}
	c.mergeRunInfo(info)

	var result *multierror.Error
	if c.tasks.StopAll(schedulerShutdownTimeout) {
		log.Warnf("Scheduler shutdown timed out")
	}
	c.ingestor.RefreshResponseTimeGauges()
	if err := c.pushClient.Push(c.store.Gatherer(), c.groupingKey.Snapshot()); err != nil {
		result = multierror.Append(result, err)
	}
	if c.settings.DeleteOnStop {
		if err := c.pushClient.Delete(c.groupingKey.Snapshot()); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Errorf("Cleanup failed during stop: %s", err)
	}
	log.Infof("Bridge stopped")
}

// Crash records a crash signal, halts the scheduler and attempts one final
// best-effort push. Crash is terminal.
func (c *Controller) Crash(cause string, info *RunInfo) {
	defer recoverToLog("crash")

	log.Errorf("Bridge crash: %s", cause)
	if info != nil && info.Simulation != "" {
		log.Errorf("Crash in simulation %s", info.Simulation)
	}
	if !c.initialised {
		return
	}
	if !c.transition(StateRunning, StateCrashed) && !c.transition(StateStopping, StateCrashed) {
		return
	}
	c.tasks.StopAll(schedulerShutdownTimeout)
	c.pushSnapshot()
}

func (c *Controller) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Controller) setState(next State) {
	atomic.StoreInt32(&c.state, int32(next))
}

func (c *Controller) transition(from State, to State) bool {
	return atomic.CompareAndSwapInt32(&c.state, int32(from), int32(to))
}

// tick runs on the scheduler goroutine: refresh the heartbeat, then push.
func (c *Controller) tick() {
	c.store.SetHeartbeat(float64(c.clock.Now().UnixMilli()) / 1000.0)
	c.pushSnapshot()
}

// pushSnapshot pushes the current registry contents. A failed push is logged
// and dropped; the next scheduled tick supersedes it.
func (c *Controller) pushSnapshot() {
	if err := c.pushClient.Push(c.store.Gatherer(), c.groupingKey.Snapshot()); err != nil {
		log.Warnf("Metrics push failed: %s", err)
	}
}

func (c *Controller) mergeRunInfo(info *RunInfo) {
	if info == nil {
		return
	}
	if info.Simulation != "" {
		c.groupingKey.Set(push.SimulationLabel, info.Simulation)
	}
	if info.RunId != "" {
		c.groupingKey.Set(push.RunIdLabel, info.RunId)
	}
}

func recoverToLog(operation string) {
	if r := recover(); r != nil {
		log.Errorf("Recovered from panic in %s: %v", operation, r)
	}
}
