package common

// Position is the single open position held by the execution simulator.
// Direction is never SignalFlat while the position is open.
type Position struct {
	Direction  Signal  `json:"direction"`
	EntryPrice float64 `json:"entry_price"`
	EntryTime  int64   `json:"entry_time"`
}
