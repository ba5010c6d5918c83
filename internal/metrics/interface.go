package metrics

import (
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
)

// Recorder counts classified errors and times the operations that produce them
type Recorder interface {
	Observe(err errors.Error)
	ObserveOperation(operation string, duration time.Duration, err errors.Error)
}

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
