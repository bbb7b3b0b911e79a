package model

type DestinationState int32

const (
	StateNotReady DestinationState = iota
	StateReady
)

func (s DestinationState) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateNotReady:
		return "NOT_READY"
	default:
		return "UNKNOWN"
	}
}

func (s DestinationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DestinationState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "READY":
		*s = StateReady
	default:
		*s = StateNotReady
	}
	return nil
}
