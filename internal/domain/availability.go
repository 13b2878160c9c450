package domain

// AvailabilityStatus state of a debounced uniqueness check.
type AvailabilityStatus int

const (
	AvailabilityIdle AvailabilityStatus = iota
	AvailabilityInvalid
	AvailabilityChecking
	AvailabilityAvailable
	AvailabilityUnavailable
)

// String returns the string representation of the status.
func (s AvailabilityStatus) String() string {
	switch s {
	case AvailabilityIdle:
		return "idle"
	case AvailabilityInvalid:
		return "invalid"
	case AvailabilityChecking:
		return "checking"
	case AvailabilityAvailable:
		return "available"
	case AvailabilityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// AvailabilityState status plus human-readable message for the checked input.
type AvailabilityState struct {
	Input   string
	Status  AvailabilityStatus
	Message string
}
