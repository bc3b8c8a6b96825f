package common

// Tick is a single top-of-book observation. TimeStamp is in microseconds since epoch.
type Tick struct {
	TimeStamp int64   `json:"ts"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume    int64   `json:"volume"`
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}
