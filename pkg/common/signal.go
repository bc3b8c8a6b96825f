package common

import "fmt"

type Signal int8

const (
	SignalFlat Signal = iota
	SignalLong
	SignalShort
)

func (s Signal) String() string {
	switch s {
	case SignalFlat:
		return "FLAT"
	case SignalLong:
		return "LONG"
	case SignalShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// Sign is +1 for long, -1 for short and 0 when flat.
func (s Signal) Sign() float64 {
	switch s {
	case SignalLong:
		return 1
	case SignalShort:
		return -1
	default:
		return 0
	}
}

// Opposite returns the direction used to exit a position held in s.
func (s Signal) Opposite() Signal {
	switch s {
	case SignalLong:
		return SignalShort
	case SignalShort:
		return SignalLong
	default:
		return SignalFlat
	}
}

func (s Signal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func ParseSignal(s string) (Signal, error) {
	switch s {
	case "FLAT":
		return SignalFlat, nil
	case "LONG":
		return SignalLong, nil
	case "SHORT":
		return SignalShort, nil
	default:
		return SignalFlat, fmt.Errorf("unknown signal %q", s)
	}
}
