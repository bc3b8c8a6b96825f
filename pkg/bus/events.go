package bus

type EventId uint8

const (
	TickEvent EventId = iota
	ThresholdEvent
)

func (id EventId) String() string {
	switch id {
	case TickEvent:
		return "tick"
	case ThresholdEvent:
		return "threshold"
	default:
		return "unknown"
	}
}
