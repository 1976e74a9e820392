package types

// State is the lifecycle state of a model. It is always derived from the
// model's flags and data, never stored.
type State int

const (
	// StateNew is a model that does not exist remotely yet
	StateNew State = iota
	// StateLoaded is a remote model with no local changes
	StateLoaded
	// StateDirty is a remote model with local changes not yet synced
	StateDirty
	// StateDeleted is a model that was destroyed. It never leaves this state.
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

// DeriveState computes a model's state from its flags.
//
// A remote model is dirty as soon as it has captured original values, and
// loaded when it has an id and nothing captured. A remote model without an id
// and without changes reports new.
func DeriveState(remote, deleted, hasID, hasChanges bool) State {
	switch {
	case deleted:
		return StateDeleted
	case remote && hasChanges:
		return StateDirty
	case remote && hasID:
		return StateLoaded
	}
	return StateNew
}

// IsRemote reports whether the state denotes a record that exists on the server
func (s State) IsRemote() bool {
	return s == StateLoaded || s == StateDirty
}
