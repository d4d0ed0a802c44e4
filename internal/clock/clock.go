package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so session and selection expiry can be driven
// by tests.
type Clock interface {
	Now() time.Time
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
