package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// InvitationPurger deletes invitations that expired without being accepted.
type InvitationPurger interface {
	PurgeExpiredInvitations(ctx context.Context) (int64, error)
}

// Scheduler runs housekeeping jobs in the background
type Scheduler struct {
	cron        *cron.Cron
	invitations InvitationPurger
	log         logrus.FieldLogger
	jobTimeout  time.Duration
}

// New creates a scheduler. Jobs are registered by Start.
func New(invitations InvitationPurger, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		invitations: invitations,
		log:         log.WithField("component", "scheduler"),
		jobTimeout:  time.Minute,
	}
}

// Start registers the invitation sweep on schedule and starts the cron loop
func (s *Scheduler) Start(invitationSweepSchedule string) error {
	if _, err := s.cron.AddFunc(invitationSweepSchedule, s.PurgeInvitations); err != nil {
		return fmt.Errorf("invalid invitation sweep schedule %q: %w", invitationSweepSchedule, err)
	}

	s.cron.Start()
	s.log.WithField("schedule", invitationSweepSchedule).Info("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// PurgeInvitations runs one invitation sweep
func (s *Scheduler) PurgeInvitations() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	purged, err := s.invitations.PurgeExpiredInvitations(ctx)
	if err != nil {
		s.log.WithError(err).Error("Invitation sweep failed")
		return
	}
	if purged > 0 {
		s.log.WithField("purged", purged).Info("Expired invitations purged")
	}
}
