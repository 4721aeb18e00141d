package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"dorm-occupancy-backend/config"
	"dorm-occupancy-backend/internal/metrics"
	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/occupancy"
)

// Engine is the part of the occupancy service the sweeper drives.
type Engine interface {
	OverdueReservations(ctx context.Context, graceDays int) ([]model.Occupancy, error)
	MarkNoShow(ctx context.Context, in occupancy.NoShowInput, actor occupancy.Actor) (model.Occupancy, error)
}

// Service marks reservations whose guest never arrived as NO_SHOW.
type Service struct {
	cfg     config.SweeperConfig
	engine  Engine
	metrics *metrics.Metrics
	actor   occupancy.Actor
	// afterMark runs once per sweep that marked at least one reservation.
	afterMark func()
}

// Option configures a sweeper.
type Option func(*Service)

// WithAfterMark registers fn to run after a sweep changed data, e.g. to flush the HTTP
// response cache.
func WithAfterMark(fn func()) Option {
	return func(s *Service) { s.afterMark = fn }
}

// NewService creates a new sweeper.
func NewService(cfg config.SweeperConfig, engine Engine, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		engine:  engine,
		metrics: m,
		actor:   occupancy.Actor{ID: "system", Name: cfg.ActorName, Role: occupancy.RoleSystem},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result summarizes one sweep.
type Result struct {
	Marked  int
	Skipped int
	Failed  int
}

// Run schedules sweeps on the configured cron schedule until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		log.Println("No-show sweeper is disabled. Not starting.")
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if _, err := s.SweepOnce(runCtx); err != nil {
			log.Printf("no-show sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.cfg.Schedule, err)
	}

	log.Printf("Starting no-show sweeper schedule=%q grace=%dd", s.cfg.Schedule, s.cfg.GraceDays)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Println("No-show sweeper shutting down.")
	return nil
}

// SweepOnce marks every overdue reservation. A reservation that changed under the sweep
// (checked in or cancelled meanwhile) is skipped; other failures are counted and logged.
func (s *Service) SweepOnce(ctx context.Context) (Result, error) {
	var res Result
	overdue, err := s.engine.OverdueReservations(ctx, s.cfg.GraceDays)
	if err != nil {
		return res, err
	}

	defer func() {
		if res.Marked > 0 && s.afterMark != nil {
			s.afterMark()
		}
	}()

	for _, o := range overdue {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		_, err := s.engine.MarkNoShow(ctx, occupancy.NoShowInput{
			OccupancyID: o.ID,
			Reason:      fmt.Sprintf("not checked in within %d day(s) of %s", s.cfg.GraceDays, o.CheckInDate.Format(occupancy.DateLayout)),
		}, s.actor)
		switch {
		case err == nil:
			res.Marked++
			s.metrics.ObserveSweep("marked")
		case occupancy.KindOf(err) == occupancy.KindInvalidTransition:
			res.Skipped++
			s.metrics.ObserveSweep("skipped")
		default:
			res.Failed++
			s.metrics.ObserveSweep("failed")
			log.Printf("failed to mark occupancy %d as no-show: %v", o.ID, err)
		}
	}

	if len(overdue) > 0 {
		log.Printf("no-show sweep: %d marked, %d skipped, %d failed", res.Marked, res.Skipped, res.Failed)
	}
	return res, nil
}
