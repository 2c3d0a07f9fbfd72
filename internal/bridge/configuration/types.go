package configuration

import "fmt"

// Settings holds the resolved bridge configuration. It is created once by
// Resolve and never mutated afterwards, so it is safe to share across
// goroutines.
type Settings struct {
	Url                string
	Job                string
	Instance           string
	User               string
	Password           string
	DeleteOnStop       bool
	PushPeriodSeconds  int
	HistogramBucketsMs []int
}

// String omits credentials so Settings can be logged at startup.
func (s Settings) String() string {
	return fmt.Sprintf(
		"Settings{url=%s job=%s instance=%s deleteOnStop=%t pushPeriodSeconds=%d histogramBucketsMs=%v}",
		s.Url, s.Job, s.Instance, s.DeleteOnStop, s.PushPeriodSeconds, s.HistogramBucketsMs)
}
