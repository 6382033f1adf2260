package geolocation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// fakeSource scripts read results and records every call
type fakeSource struct {
	reads     []ReadOptions
	results   []readScript
	watchFn   func(models.LocationSample, error)
	watchOpts []ReadOptions
	stopped   int
}

type readScript struct {
	sample models.LocationSample
	err    error
}

func (f *fakeSource) Read(ctx context.Context, opts ReadOptions) (models.LocationSample, error) {
	f.reads = append(f.reads, opts)
	if len(f.results) == 0 {
		return models.LocationSample{}, NewPositionError(PositionUnavailable, "no script")
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res.sample, res.err
}

func (f *fakeSource) Watch(opts ReadOptions, fn func(models.LocationSample, error)) (func(), error) {
	f.watchOpts = append(f.watchOpts, opts)
	f.watchFn = fn
	return func() { f.stopped++ }, nil
}

func sampleAt(lat, lng float64) models.LocationSample {
	return models.LocationSample{
		Coordinate:     models.Coordinate{Latitude: lat, Longitude: lng},
		AccuracyMeters: 10,
		CapturedAt:     time.Now().UnixMilli(),
	}
}

func newTestProvider(source Source) (*Provider, *time.Time) {
	p := NewProvider(source, DefaultConfig(), zerolog.Nop())
	now := time.Unix(1_700_000_000, 0)
	p.SetNow(func() time.Time { return now })
	return p, &now
}

func TestProviderCurrent(t *testing.T) {
	t.Run("Fresh Cache Skips Hardware", func(t *testing.T) {
		source := &fakeSource{results: []readScript{{sample: sampleAt(43.46, -80.52)}}}
		p, now := newTestProvider(source)

		first, err := p.Current(context.Background())
		require.NoError(t, err)
		assert.Len(t, source.reads, 1)

		// 10s later: concurrent callers observe the same sample
		*now = now.Add(10 * time.Second)
		second, err := p.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, source.reads, 1)

		// Past the staleness threshold the hardware is consulted again
		*now = now.Add(25 * time.Second)
		source.results = []readScript{{sample: sampleAt(43.47, -80.53)}}
		_, err = p.Current(context.Background())
		require.NoError(t, err)
		assert.Len(t, source.reads, 2)
	})

	t.Run("Transient Failure Retries With Reduced Accuracy", func(t *testing.T) {
		source := &fakeSource{results: []readScript{
			{err: NewPositionError(Timeout, "gps timeout")},
			{sample: sampleAt(43.46, -80.52)},
		}}
		p, _ := newTestProvider(source)

		_, err := p.Current(context.Background())
		require.NoError(t, err)
		require.Len(t, source.reads, 2)
		assert.True(t, source.reads[0].HighAccuracy)
		assert.False(t, source.reads[1].HighAccuracy)
		assert.Equal(t, 60*time.Second, source.reads[1].MaxAge)
	})

	t.Run("Both Tiers Failing Surfaces The Error", func(t *testing.T) {
		source := &fakeSource{results: []readScript{
			{err: NewPositionError(PositionUnavailable, "no fix")},
			{err: NewPositionError(PositionUnavailable, "no fix")},
		}}
		p, _ := newTestProvider(source)

		_, err := p.Current(context.Background())
		assert.Equal(t, PositionUnavailable, CodeOf(err))
		assert.Len(t, source.reads, 2)
	})

	t.Run("Permission Denied Is Not Retried", func(t *testing.T) {
		source := &fakeSource{results: []readScript{
			{err: NewPositionError(PermissionDenied, "denied")},
		}}
		p, _ := newTestProvider(source)

		_, err := p.Current(context.Background())
		assert.Equal(t, PermissionDenied, CodeOf(err))
		assert.Len(t, source.reads, 1)
	})

	t.Run("Permission Denied Invalidates Shared Cache", func(t *testing.T) {
		source := &fakeSource{results: []readScript{{sample: sampleAt(43.46, -80.52)}}}
		p, now := newTestProvider(source)

		_, err := p.Current(context.Background())
		require.NoError(t, err)

		// Watch delivers a permission revocation
		_, err = p.Watch(func(models.LocationSample) {}, nil)
		require.NoError(t, err)
		source.watchFn(models.LocationSample{}, NewPositionError(PermissionDenied, "revoked"))

		// Still inside the freshness window, but the stale coordinates
		// must not be served
		*now = now.Add(5 * time.Second)
		source.results = []readScript{{sample: sampleAt(43.47, -80.53)}}
		_, err = p.Current(context.Background())
		require.NoError(t, err)
		assert.Len(t, source.reads, 2)
	})
}

func TestProviderWatch(t *testing.T) {
	t.Run("Samples Fan Out To All Watchers", func(t *testing.T) {
		source := &fakeSource{}
		p, _ := newTestProvider(source)

		var a, b int
		stopA, err := p.Watch(func(models.LocationSample) { a++ }, nil)
		require.NoError(t, err)
		_, err = p.Watch(func(models.LocationSample) { b++ }, nil)
		require.NoError(t, err)

		source.watchFn(sampleAt(43.46, -80.52), nil)
		assert.Equal(t, 1, a)
		assert.Equal(t, 1, b)

		stopA()
		source.watchFn(sampleAt(43.46, -80.52), nil)
		assert.Equal(t, 1, a)
		assert.Equal(t, 2, b)
	})

	t.Run("Successful On-Demand Read Notifies Watchers", func(t *testing.T) {
		source := &fakeSource{results: []readScript{{sample: sampleAt(43.46, -80.52)}}}
		p, _ := newTestProvider(source)

		var seen int
		_, err := p.Watch(func(models.LocationSample) { seen++ }, nil)
		require.NoError(t, err)

		_, err = p.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, seen)
	})

	t.Run("Timeouts Are Swallowed", func(t *testing.T) {
		source := &fakeSource{}
		p, _ := newTestProvider(source)

		var errs []error
		_, err := p.Watch(func(models.LocationSample) {}, func(e error) { errs = append(errs, e) })
		require.NoError(t, err)

		source.watchFn(models.LocationSample{}, NewPositionError(Timeout, "missed fix"))
		assert.Empty(t, errs)

		source.watchFn(models.LocationSample{}, NewPositionError(PositionUnavailable, "hardware gone"))
		require.Len(t, errs, 1)
		assert.Equal(t, PositionUnavailable, CodeOf(errs[0]))
	})

	t.Run("Last Unsubscribe Stops The Source", func(t *testing.T) {
		source := &fakeSource{}
		p, _ := newTestProvider(source)

		stopA, err := p.Watch(func(models.LocationSample) {}, nil)
		require.NoError(t, err)
		stopB, err := p.Watch(func(models.LocationSample) {}, nil)
		require.NoError(t, err)

		stopA()
		assert.Equal(t, 0, source.stopped)
		stopB()
		assert.Equal(t, 1, source.stopped)
	})
}
