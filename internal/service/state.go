package service

// State is a step of the collection state machine.
type State int

const (
	// StateFetching is the initial state: no page has been fetched successfully yet.
	StateFetching State = iota
	// StateAccumulating means at least one non-empty page has been processed.
	StateAccumulating
	// StateTerminatedEmpty means the first page reported zero matches.
	StateTerminatedEmpty
	// StateTerminatedFailure means a fetch failed or the run was cancelled.
	StateTerminatedFailure
	// StateTerminatedSuccess means a page came back with no entries.
	StateTerminatedSuccess
)

var stateNames = map[State]string{
	StateFetching:          "fetching",
	StateAccumulating:      "accumulating",
	StateTerminatedEmpty:   "terminated_empty",
	StateTerminatedFailure: "terminated_failure",
	StateTerminatedSuccess: "terminated_success",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether the collection loop stops in this state.
func (s State) Terminal() bool {
	return s == StateTerminatedEmpty || s == StateTerminatedFailure || s == StateTerminatedSuccess
}
