package ledger

import "time"

// State represents one step of a photo's lifecycle.
type State string

const (
	StateCaptured       State = "captured"
	StateUploadOK       State = "upload_ok"
	StateUploadFailed   State = "upload_failed"
	StateBackedUp       State = "backed_up"
	StateAlreadyRemote  State = "already_remote"
	StateReconciled     State = "reconciled"
	StateQuarantined    State = "quarantined"
	StateDeletedLocally State = "deleted_locally"
)

var allStates = []State{
	StateCaptured,
	StateUploadOK,
	StateUploadFailed,
	StateBackedUp,
	StateAlreadyRemote,
	StateReconciled,
	StateQuarantined,
	StateDeletedLocally,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	_, ok := stateSet[s]
	return ok
}

// Entry is one photo's ledger row.
type Entry struct {
	ID          int64
	Sequence    int
	Filename    string
	CaptureDate string
	CapturedAt  time.Time
	State       State
	Detail      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
