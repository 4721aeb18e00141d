package occupancy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dorm-occupancy-backend/internal/metrics"
	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/store"
)

// Service is the occupancy engine. It holds no state between calls; everything is read
// from and written to the store inside one transaction per operation.
type Service struct {
	store    store.Store
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
	loc      *time.Location
	retries  int
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the receiver of committed changes.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithMetrics sets the prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone that decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithConflictRetries sets how often a transaction that lost a concurrent commit is re-run.
func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// NewService creates the engine on top of st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		notifier: nopNotifier{},
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// today is the current calendar date in the configured timezone.
func (s *Service) today() time.Time {
	return Day(s.now().In(s.loc))
}

// mutate runs fn in a transaction, retrying lost races, and normalizes the error.
func (s *Service) mutate(ctx context.Context, action model.Action, actor Actor, fn func(tx store.Tx) error) error {
	started := time.Now()
	err := validateActor(actor)
	if err == nil {
		for attempt := 0; ; attempt++ {
			err = s.store.InTx(ctx, fn)
			if !errors.Is(err, store.ErrConflict) || attempt >= s.retries {
				break
			}
			s.metrics.ObserveRetry(string(action))
			log.Printf("occupancy %s by %s: concurrent update conflict, retrying (attempt %d)", action, actor.ID, attempt+1)
		}
	}
	err = s.classify(action, err)

	result := "ok"
	if err != nil {
		result = string(KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	s.metrics.ObserveOperation(string(action), result, time.Since(started))
	return err
}

// classify keeps business errors as they are, maps store sentinels onto kinds and
// wraps anything else as an opaque storage failure.
func (s *Service) classify(action model.Action, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, store.ErrConflict) {
		return newError(KindConcurrencyConflict, "the occupancy was changed by another request; reload and try again")
	}
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "record not found")
	}
	log.Printf("occupancy %s failed: %v", action, err)
	return fmt.Errorf("occupancy %s: %w", action, err)
}

// emit hands a committed change to the notifier, with the bed attached for display.
func (s *Service) emit(ctx context.Context, c Change) {
	if c.Occupancy.Bed.ID == 0 && c.Occupancy.BedID != 0 {
		if bed, err := s.store.GetBed(ctx, c.Occupancy.BedID); err == nil {
			c.Occupancy.Bed = bed
		}
	}
	if c.At.IsZero() {
		c.At = s.now()
	}
	s.notifier.Notify(c)
}

// Get returns one occupancy with its occupant.
func (s *Service) Get(ctx context.Context, id int64) (model.Occupancy, error) {
	o, err := s.store.GetOccupancy(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return o, notFoundError("occupancy", id)
	}
	if err != nil {
		return o, s.classify("GET", err)
	}
	return o, nil
}

// LookupByCode resolves the public code printed on QR tickets.
func (s *Service) LookupByCode(ctx context.Context, code string) (model.Occupancy, error) {
	o, err := s.store.GetOccupancyByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return o, notFoundError("occupancy", code)
	}
	if err != nil {
		return o, s.classify("LOOKUP", err)
	}
	return o, nil
}

// LookupBed resolves a bed by its printed label.
func (s *Service) LookupBed(ctx context.Context, label string) (model.Bed, error) {
	if blank(label) {
		return model.Bed{}, validationError("bed label is required")
	}
	bed, err := s.store.GetBedByCode(ctx, label)
	if errors.Is(err, store.ErrNotFound) {
		return bed, notFoundError("bed", label)
	}
	if err != nil {
		return bed, s.classify("LOOKUP", err)
	}
	return bed, nil
}

// LookupOccupant finds an occupant by NIK.
func (s *Service) LookupOccupant(ctx context.Context, nik string) (model.Occupant, error) {
	if blank(nik) {
		return model.Occupant{}, validationError("nik is required")
	}
	o, err := s.store.GetOccupantByNIK(ctx, nik)
	if errors.Is(err, store.ErrNotFound) {
		return o, notFoundError("occupant with NIK", nik)
	}
	if err != nil {
		return o, s.classify("LOOKUP", err)
	}
	return o, nil
}

// OverdueReservations lists reservations whose check-in date is more than graceDays in the past.
func (s *Service) OverdueReservations(ctx context.Context, graceDays int) ([]model.Occupancy, error) {
	cutoff := s.today().AddDate(0, 0, -graceDays)
	rows, err := s.store.ListOverdueReservations(ctx, cutoff)
	if err != nil {
		return nil, s.classify(model.ActionNoShow, err)
	}
	return rows, nil
}

// lockOccupancy loads the record for update, mapping a miss onto NotFound.
func lockOccupancy(tx store.Tx, id int64) (model.Occupancy, error) {
	o, err := tx.LockOccupancy(id)
	if errors.Is(err, store.ErrNotFound) {
		return o, notFoundError("occupancy", id)
	}
	return o, err
}

// lockBookableBed loads the bed for update and rejects beds that cannot take guests.
func lockBookableBed(tx store.Tx, id int64) (model.Bed, error) {
	bed, err := tx.LockBed(id)
	if errors.Is(err, store.ErrNotFound) {
		return bed, notFoundError("bed", id)
	}
	if err != nil {
		return bed, err
	}
	if !bed.Bookable() {
		return bed, newError(KindBedUnavailable, "bed %s is %s and cannot be booked", bedLabel(bed), bed.Status)
	}
	return bed, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func statusPtr(s model.OccupancyStatus) *model.OccupancyStatus {
	return &s
}
