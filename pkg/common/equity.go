package common

type Equity struct {
	TimeStamp int64   `json:"ts"`
	Value     float64 `json:"value"`
}
