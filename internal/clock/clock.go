// Package clock abstracts wall time so document timestamps can be pinned in
// tests.
package clock

import (
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(New),
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// New returns the wall clock in UTC.
func New() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }
