package common

import "time"

type Trade struct {
	EntryTime  int64   `json:"entry_time"`
	ExitTime   int64   `json:"exit_time"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Direction  Signal  `json:"direction"`
	PnL        float64 `json:"pnl"`
	Commission float64 `json:"commission"`
	DurationUs int64   `json:"duration_us"`
}

// NetPnL also subtracts the entry commission. PnL leaves it out because it is
// charged to equity when the position opens.
func (t Trade) NetPnL() float64 {
	return t.PnL - (t.Commission / 2)
}

func (t Trade) Duration() time.Duration {
	return time.Duration(t.DurationUs) * time.Microsecond
}

func (t Trade) IsWin() bool {
	return t.PnL > 0
}
