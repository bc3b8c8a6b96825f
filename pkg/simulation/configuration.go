package simulation

import (
	"github.com/peter-kozarec/artemis/pkg/exchange/sandbox"
)

const (
	DefaultWindow        = 20000
	DefaultThreshold     = 2.5
	DefaultQueueCapacity = 65536
)

type Configuration struct {
	InitialEquity      float64
	Commission         float64
	SlippageTicks      float64
	TickSize           float64
	ContractMultiplier float64

	Window    int
	Threshold float64

	QueueCapacity uint64
	// ReplayRate paces concurrent producers in ticks per second, 0 means unpaced.
	ReplayRate float64
}

func DefaultConfiguration() Configuration {
	return Configuration{
		InitialEquity:      sandbox.DefaultInitialEquity,
		Commission:         sandbox.DefaultCommission,
		SlippageTicks:      sandbox.DefaultSlippageTicks,
		TickSize:           sandbox.DefaultTickSize,
		ContractMultiplier: sandbox.DefaultContractMultiplier,
		Window:             DefaultWindow,
		Threshold:          DefaultThreshold,
		QueueCapacity:      DefaultQueueCapacity,
	}
}
