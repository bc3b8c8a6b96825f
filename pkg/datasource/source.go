package datasource

import (
	"errors"

	"github.com/peter-kozarec/artemis/pkg/common"
)

// ErrEof marks the regular end of a tick stream.
var ErrEof = errors.New("EOF")

type TickDataSource interface {
	GetNext() (common.Tick, error)
}
