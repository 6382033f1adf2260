package geolocation

import (
	"context"
	"sync"
	"time"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// PushSource is a Source fed by the host UI layer: the device geolocation
// callbacks arrive as Deliver/DeliverError calls instead of hardware
// interrupts. Read blocks until the next delivery, honoring MaxAge against
// the most recent fix.
type PushSource struct {
	mu      sync.Mutex
	last    *models.LocationSample
	lastAt  time.Time
	watch   func(models.LocationSample, error)
	waiters []chan readResult
	now     func() time.Time
}

type readResult struct {
	sample models.LocationSample
	err    error
}

// NewPushSource creates an empty push source
func NewPushSource() *PushSource {
	return &PushSource{now: time.Now}
}

// SetNow overrides the clock, for tests
func (s *PushSource) SetNow(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Deliver feeds one position fix into the source
func (s *PushSource) Deliver(sample models.LocationSample) {
	s.mu.Lock()
	s.last = &sample
	s.lastAt = s.now()
	watch := s.watch
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w <- readResult{sample: sample}
	}
	if watch != nil {
		watch(sample, nil)
	}
}

// DeliverError feeds one typed acquisition failure into the source
func (s *PushSource) DeliverError(err *PositionError) {
	s.mu.Lock()
	watch := s.watch
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w <- readResult{err: err}
	}
	if watch != nil {
		watch(models.LocationSample{}, err)
	}
}

// Read returns the last delivered fix if younger than opts.MaxAge, otherwise
// blocks for the next delivery up to opts.Timeout.
func (s *PushSource) Read(ctx context.Context, opts ReadOptions) (models.LocationSample, error) {
	s.mu.Lock()
	if s.last != nil && opts.MaxAge > 0 && s.now().Sub(s.lastAt) <= opts.MaxAge {
		sample := *s.last
		s.mu.Unlock()
		return sample, nil
	}

	ch := make(chan readResult, 1)
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.sample, res.err
	case <-timer.C:
		s.removeWaiter(ch)
		return models.LocationSample{}, NewPositionError(Timeout, "no position delivered in time")
	case <-ctx.Done():
		s.removeWaiter(ch)
		return models.LocationSample{}, NewPositionError(Timeout, ctx.Err().Error())
	}
}

// Watch registers the continuous delivery callback. Only one underlying
// subscription exists; the provider fans out above this.
func (s *PushSource) Watch(opts ReadOptions, fn func(models.LocationSample, error)) (func(), error) {
	s.mu.Lock()
	s.watch = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.watch = nil
		s.mu.Unlock()
	}, nil
}

func (s *PushSource) removeWaiter(ch chan readResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == ch {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}
