package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// DeadlineSweeper closes published assignments whose deadline plus grace has
// passed and that do not accept late work. It goes through the regular
// published -> closed transition as the system actor.
type DeadlineSweeper struct {
	store       *repository.Store
	assignments AssignmentService
	grace       time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDeadlineSweeper wires the sweeper to the assignment orchestrator.
func NewDeadlineSweeper(store *repository.Store, assignments AssignmentService, grace time.Duration, logger zerolog.Logger) *DeadlineSweeper {
	return &DeadlineSweeper{
		store:       store,
		assignments: assignments,
		grace:       grace,
		logger:      logger.With().Str("component", "deadline_sweeper").Logger(),
		now:         time.Now,
	}
}

// Sweep runs one pass and returns how many assignments were closed. A failure
// on one assignment is logged and does not stop the pass.
func (s *DeadlineSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.store.Assignments.ListDueForClose(ctx, now.Add(-s.grace))
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, assignment := range candidates {
		if !lifecycle.ShouldAutoClose(assignment, s.grace, now) {
			continue
		}
		_, err := s.assignments.RequestTransition(ctx, lifecycle.SystemActor, assignment.ID, dto.AssignmentTransitionRequest{
			Status: string(models.AssignmentStatusClosed),
		})
		if err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to auto-close assignment")
			continue
		}
		observability.AssignmentsAutoClosed().Inc()
		closed++
	}

	if closed > 0 {
		s.logger.Info().Int("closed", closed).Msg("auto-closed assignments past deadline")
	}
	return closed, nil
}

// Start schedules Sweep on the given cron spec and starts the scheduler.
func (s *DeadlineSweeper) Start(schedule string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("assignment sweep failed")
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	s.logger.Info().Str("schedule", schedule).Dur("grace", s.grace).Msg("assignment auto-close sweeper started")
	return c, nil
}
