package metrics

import (
	"math"
	"sync"
	"sync/atomic"
)

// Aggregator computes running statistics over recorded response times using
// Welford's online algorithm. A single mutex guards the (count, mean, m2)
// update; min and max are independent atomics updated by compare-and-swap
// retry loops so concurrent recorders never lose an extreme.
type Aggregator struct {
	min int64 // accessed atomically
	max int64 // accessed atomically

	mu    sync.Mutex
	count uint64
	mean  float64
	m2    float64
}

// AggregateState is a read-only view of the aggregator. Count, Mean and M2
// are taken together under the lock; Min and Max are read independently and
// may lag the triple by in-flight records.
type AggregateState struct {
	Count uint64
	Mean  float64
	M2    float64
	Min   int64
	Max   int64
}

func NewAggregator() *Aggregator {
	return &Aggregator{min: math.MaxInt64}
}

func (a *Aggregator) Record(value int64) {
	updateExtreme(&a.min, value, func(current int64) bool { return value < current })
	updateExtreme(&a.max, value, func(current int64) bool { return value > current })

	a.mu.Lock()
	a.count++
	delta := float64(value) - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (float64(value) - a.mean)
	a.mu.Unlock()
}

func updateExtreme(extreme *int64, candidate int64, improves func(current int64) bool) {
	for {
		current := atomic.LoadInt64(extreme)
		if !improves(current) {
			return
		}
		if atomic.CompareAndSwapInt64(extreme, current, candidate) {
			return
		}
	}
}

func (a *Aggregator) Snapshot() AggregateState {
	a.mu.Lock()
	state := AggregateState{Count: a.count, Mean: a.mean, M2: a.m2}
	a.mu.Unlock()
	state.Min = atomic.LoadInt64(&a.min)
	state.Max = atomic.LoadInt64(&a.max)
	return state
}

// Variance is the sample variance, zero until two values have been recorded.
func (s AggregateState) Variance() float64 {
	if s.Count > 1 {
		return s.M2 / float64(s.Count-1)
	}
	return 0
}

func (s AggregateState) StdDev() float64 {
	return math.Sqrt(s.Variance())
}
