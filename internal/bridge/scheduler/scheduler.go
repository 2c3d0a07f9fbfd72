package scheduler

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type task struct {
	function    func()
	interval    time.Duration
	metricName  string
	stopChannel chan bool
}

// TaskManager runs registered functions on a fixed period, firing the first
// run immediately. It is not threadsafe and should only be driven from a
// single goroutine; the registered functions themselves run on background
// goroutines.
type TaskManager struct {
	tasks         []*task
	metricsPrefix string
	registerer    prometheus.Registerer
	wg            *sync.WaitGroup
	stopOnce      sync.Once
}

// NewTaskManager instruments each task with a run-latency histogram on the
// given registerer. The registerer is kept separate from the pushed registry
// so scheduler internals never leak into a push.
func NewTaskManager(metricsPrefix string, registerer prometheus.Registerer) *TaskManager {
	return &TaskManager{
		tasks:         []*task{},
		metricsPrefix: metricsPrefix,
		registerer:    registerer,
		wg:            &sync.WaitGroup{},
	}
}

func (m *TaskManager) Register(backgroundTask func(), interval time.Duration, metricName string) {
	task := &task{
		function:    backgroundTask,
		interval:    interval,
		metricName:  metricName,
		stopChannel: make(chan bool),
	}
	m.startBackgroundTask(task)
	m.tasks = append(m.tasks, task)
}

// StopAll cancels pending ticks and waits for in-flight runs up to timeout.
// Returns true if the wait timed out. Safe to call more than once; later
// calls only wait.
func (m *TaskManager) StopAll(timeout time.Duration) bool {
	m.stopOnce.Do(m.stopTasks)
	return m.waitForShutdownCompletion(timeout)
}

func (m *TaskManager) startBackgroundTask(task *task) {
	var taskDurationHistogram = promauto.With(m.registerer).NewHistogram(
		prometheus.HistogramOpts{
			Name:    m.metricsPrefix + task.metricName + "_latency_seconds",
			Help:    "Background loop " + task.metricName + " latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		})

	m.wg.Add(1)
	go func() {
		start := time.Now()
		task.function()
		taskDurationHistogram.Observe(time.Since(start).Seconds())

		for {
			select {
			case <-time.After(task.interval):
			case <-task.stopChannel:
				m.wg.Done()
				return
			}
			innerStart := time.Now()
			task.function()
			taskDurationHistogram.Observe(time.Since(innerStart).Seconds())
		}
	}()
}

func (m *TaskManager) waitForShutdownCompletion(timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		m.wg.Wait()
	}()
	select {
	case <-c:
		return false // completed normally
	case <-time.After(timeout):
		return true // timed out
	}
}

func (m *TaskManager) stopTasks() {
	for _, task := range m.tasks {
		close(task.stopChannel)
	}
}
