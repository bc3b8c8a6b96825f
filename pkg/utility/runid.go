package utility

import (
	"sync"

	"github.com/google/uuid"
)

// RunID identifies one backtest run.
type RunID = uuid.UUID

// ExecutionID identifies the process; every run started by it shares the value.
type ExecutionID = uuid.UUID

var (
	executionID     ExecutionID
	executionIDOnce sync.Once
)

func NewRunID() RunID {
	return uuid.Must(uuid.NewV7())
}

func GetExecutionID() ExecutionID {
	executionIDOnce.Do(func() {
		executionID = uuid.Must(uuid.NewV7())
	})
	return executionID
}
