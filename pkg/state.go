package epidump

import "log/slog"

// state is a stage of processing a dataset family or one of its files.
type state int

const (
	statePending state = iota
	stateAcquiring
	stateDiscovering
	stateReading
	stateCleaning
	stateLoading
	stateDone
	stateError
)

var stateNames = [...]string{
	"PENDING",
	"ACQUIRING",
	"DISCOVERING_FILES",
	"READING",
	"CLEANING",
	"LOADING",
	"DONE",
	"ERROR",
}

func (s state) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

func enter(s state, dataset, file string) {
	slog.Debug("Pipeline state", "state", s, "dataset", dataset, "file", file)
}
