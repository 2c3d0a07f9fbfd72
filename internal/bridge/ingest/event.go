package ingest

// Event is a host lifecycle record. The ingestion adapter converts the
// host's native objects into one of the variants below before calling into
// the bridge; the bridge itself never inspects host types.
type Event interface {
	isEvent()
}

// UserStart marks a virtual user entering a scenario.
type UserStart struct {
	Scenario string
}

// UserEnd marks a virtual user leaving a scenario.
type UserEnd struct {
	Scenario string
}

// Response is a completed request/response exchange. Timestamps are epoch
// milliseconds as reported by the host; EndTimestampMs may precede
// StartTimestampMs if the host's clocks are inconsistent.
type Response struct {
	Name             string
	Group            string
	Status           string
	StartTimestampMs int64
	EndTimestampMs   int64
}

func (UserStart) isEvent() {}
func (UserEnd) isEvent()   {}
func (Response) isEvent()  {}
