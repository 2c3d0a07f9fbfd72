package bridge

// State is the lifecycle state of the bridge controller.
//
// Transitions: Init -> Running on successful setup; Running -> Stopping on a
// stop signal; Running or Stopping -> Crashed on a crash signal. Stopping
// (after cleanup) and Crashed are terminal.
type State int32

const (
	StateInit State = iota
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}
