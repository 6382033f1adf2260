package detector

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// ErrAlreadyRunning is returned when Start is called on a running detector
var ErrAlreadyRunning = errors.New("detector already running")

// SampleStream is the piece of the location provider the detector consumes
type SampleStream interface {
	Watch(onSample func(models.LocationSample), onError func(error)) (func(), error)
}

// Detector feeds a continuous sample stream through the stay reducer and
// emits visit candidates. Samples are processed strictly in arrival order;
// each evaluation completes before the next begins.
type Detector struct {
	cfg Config
	log zerolog.Logger

	mu          sync.Mutex
	stays       map[string]*models.Stay
	places      []models.Place
	onCandidate func(models.VisitCandidate)
	unsubscribe func()
}

// New creates a stopped detector
func New(cfg Config, log zerolog.Logger) *Detector {
	return &Detector{
		cfg:   cfg,
		log:   log,
		stays: make(map[string]*models.Stay),
	}
}

// SetPlaces replaces the candidate set. Stays for places no longer in the
// set are dropped so a stale candidate cannot notify later.
func (d *Detector) SetPlaces(places []models.Place) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.places = places
	keep := make(map[string]bool, len(places))
	for _, p := range places {
		keep[p.ID] = true
	}
	for id := range d.stays {
		if !keep[id] {
			delete(d.stays, id)
		}
	}
}

// Start subscribes the detector to the sample stream. Candidates are
// delivered synchronously from the evaluation path.
func (d *Detector) Start(stream SampleStream, onCandidate func(models.VisitCandidate)) error {
	d.mu.Lock()
	if d.unsubscribe != nil {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.onCandidate = onCandidate
	d.mu.Unlock()

	stop, err := stream.Watch(d.OnSample, func(err error) {
		d.log.Warn().Str("error", err.Error()).Msg("location watch error")
	})
	if err != nil {
		d.mu.Lock()
		d.onCandidate = nil
		d.mu.Unlock()
		return err
	}

	d.mu.Lock()
	d.unsubscribe = stop
	d.mu.Unlock()
	return nil
}

// Stop cancels the subscription and discards all stay state synchronously.
// A stopped detector restarted later begins from an empty stay map.
func (d *Detector) Stop() {
	d.mu.Lock()
	stop := d.unsubscribe
	d.unsubscribe = nil
	d.onCandidate = nil
	d.stays = make(map[string]*models.Stay)
	d.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Running reports whether a subscription is active
func (d *Detector) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unsubscribe != nil
}

// OnSample evaluates one sample against the candidate set. Exposed so
// on-demand reads can also feed the machine.
func (d *Detector) OnSample(sample models.LocationSample) {
	d.mu.Lock()
	candidates := Evaluate(d.stays, d.places, sample, d.cfg)
	emit := d.onCandidate
	d.mu.Unlock()

	for _, c := range candidates {
		d.log.Info().
			Str("place_id", c.Place.ID).
			Float64("distance_m", c.DistanceMeters).
			Int64("dwell_ms", c.DwellMs).
			Msg("visit candidate detected")
		if emit != nil {
			emit(c)
		}
	}
}

// Snapshot returns a copy of the current stay map for inspection
func (d *Detector) Snapshot() []models.Stay {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.Stay, 0, len(d.stays))
	for _, s := range d.stays {
		out = append(out, *s)
	}
	return out
}
