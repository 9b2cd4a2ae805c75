package lifecycle

// State is an instance's lifecycle state.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Ready or Error.
func (s State) Terminal() bool {
	return s == Ready || s == Error
}
