package geolocation

import (
	"context"
	"time"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// ReadOptions configures a single position acquisition
type ReadOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaxAge allows the source to return its own fix up to this old
	// instead of powering up the hardware
	MaxAge time.Duration
}

// Source abstracts the device geolocation service: one-shot position reads
// and a continuous position watch. Implementations return *PositionError
// for all failures.
type Source interface {
	// Read acquires a single position fix. Blocks until a fix, a typed
	// error, or context cancellation.
	Read(ctx context.Context, opts ReadOptions) (models.LocationSample, error)

	// Watch starts a continuous subscription. fn is invoked for every fix
	// or error the hardware reports. The returned stop function
	// synchronously cancels the underlying subscription.
	Watch(opts ReadOptions, fn func(models.LocationSample, error)) (stop func(), err error)
}
