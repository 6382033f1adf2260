package geolocation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// Config holds provider tuning knobs
type Config struct {
	// FreshFor is how long a cached sample satisfies Current without
	// touching hardware
	FreshFor time.Duration
	// HighAccuracyTimeout bounds the first-tier read
	HighAccuracyTimeout time.Duration
	// FallbackMaxAge is the relaxed max-age allowed on the low-accuracy retry
	FallbackMaxAge time.Duration
}

// DefaultConfig returns the tuning used in production
func DefaultConfig() Config {
	return Config{
		FreshFor:            30 * time.Second,
		HighAccuracyTimeout: 15 * time.Second,
		FallbackMaxAge:      60 * time.Second,
	}
}

type watcher struct {
	onSample func(models.LocationSample)
	onError  func(error)
}

// Provider produces location samples on demand and continuously, sharing one
// cached sample across all callers so near-simultaneous requests do not
// trigger redundant hardware reads. Single-writer: the most recent
// successful read wins.
type Provider struct {
	source Source
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time

	mu         sync.Mutex
	cached     *models.LocationSample
	cachedAt   time.Time
	watchers   map[int]watcher
	nextID     int
	stopSource func()
}

// NewProvider creates a provider over the given source
func NewProvider(source Source, cfg Config, log zerolog.Logger) *Provider {
	return &Provider{
		source:   source,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		watchers: make(map[int]watcher),
	}
}

// SetNow overrides the clock, for tests
func (p *Provider) SetNow(now func() time.Time) {
	p.now = now
}

// Current returns the device position. A cached sample younger than
// cfg.FreshFor is returned without touching hardware. Otherwise the source
// is read with high accuracy first; transient failures are retried once with
// reduced accuracy and a relaxed max age. Permission denial is terminal and
// invalidates the cache.
func (p *Provider) Current(ctx context.Context) (models.LocationSample, error) {
	p.mu.Lock()
	if p.cached != nil && p.now().Sub(p.cachedAt) < p.cfg.FreshFor {
		sample := *p.cached
		p.mu.Unlock()
		return sample, nil
	}
	p.mu.Unlock()

	sample, err := p.source.Read(ctx, ReadOptions{
		HighAccuracy: true,
		Timeout:      p.cfg.HighAccuracyTimeout,
	})
	if err != nil {
		if !IsTransient(err) {
			p.handleTerminal(err)
			return models.LocationSample{}, err
		}

		p.log.Debug().Str("error", err.Error()).Msg("high-accuracy read failed, retrying with reduced accuracy")
		sample, err = p.source.Read(ctx, ReadOptions{
			HighAccuracy: false,
			Timeout:      p.cfg.HighAccuracyTimeout,
			MaxAge:       p.cfg.FallbackMaxAge,
		})
		if err != nil {
			if !IsTransient(err) {
				p.handleTerminal(err)
			}
			return models.LocationSample{}, err
		}
	}

	p.accept(sample)
	return sample, nil
}

// Watch registers a continuous sample consumer. The first watcher starts the
// underlying hardware subscription; stopping the last one cancels it
// synchronously. Timeout errors from the hardware are swallowed (a missed
// sample is not actionable); permission and hardware-unavailable errors are
// delivered to onError.
func (p *Provider) Watch(onSample func(models.LocationSample), onError func(error)) (func(), error) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = watcher{onSample: onSample, onError: onError}
	needStart := p.stopSource == nil
	p.mu.Unlock()

	if needStart {
		stop, err := p.source.Watch(ReadOptions{HighAccuracy: true}, p.onSourceEvent)
		if err != nil {
			p.mu.Lock()
			delete(p.watchers, id)
			p.mu.Unlock()
			return nil, err
		}
		p.mu.Lock()
		p.stopSource = stop
		p.mu.Unlock()
	}

	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		var stop func()
		if len(p.watchers) == 0 && p.stopSource != nil {
			stop = p.stopSource
			p.stopSource = nil
		}
		p.mu.Unlock()
		if stop != nil {
			stop()
		}
	}, nil
}

// Invalidate discards the shared cached sample
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// onSourceEvent handles every fix or failure the continuous subscription reports
func (p *Provider) onSourceEvent(sample models.LocationSample, err error) {
	if err == nil {
		p.accept(sample)
		return
	}

	if CodeOf(err) == Timeout {
		p.log.Debug().Msg("watch sample timed out, waiting for next fix")
		return
	}

	p.handleTerminal(err)
	for _, w := range p.snapshotWatchers() {
		if w.onError != nil {
			w.onError(err)
		}
	}
}

// accept stores a successful read in the shared cache and fans it out to all
// registered watchers synchronously
func (p *Provider) accept(sample models.LocationSample) {
	p.mu.Lock()
	p.cached = &sample
	p.cachedAt = p.now()
	p.mu.Unlock()

	for _, w := range p.snapshotWatchers() {
		w.onSample(sample)
	}
}

func (p *Provider) snapshotWatchers() []watcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]watcher, 0, len(p.watchers))
	for _, w := range p.watchers {
		out = append(out, w)
	}
	return out
}

// handleTerminal clears the shared cache on permission revocation so stale
// coordinates are never served after access is withdrawn
func (p *Provider) handleTerminal(err error) {
	if CodeOf(err) == PermissionDenied {
		p.log.Warn().Msg("location permission denied, invalidating shared cache")
		p.Invalidate()
	}
}
