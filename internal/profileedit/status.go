package profileedit

// HandleStatus is where the handle field stands in its availability check.
type HandleStatus int

const (
	// Idle: the handle is the persisted one, so no check is needed.
	Idle HandleStatus = iota
	// Invalid: the format is wrong, or the availability check failed.
	Invalid
	// Checking: a check is scheduled or in flight.
	Checking
	Available
	Taken
)

func (s HandleStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case Invalid:
		return "invalid"
	case Checking:
		return "checking"
	case Available:
		return "available"
	case Taken:
		return "taken"
	default:
		return "unknown"
	}
}
