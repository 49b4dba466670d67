package scheduler

import (
	"context"
	"time"

	"salon_reminder_service/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderScheduler wires the reminder services to wall-clock cron entries:
// a short-interval poll for the precise 24h window, two fixed daily firings
// for the batch, and a daily materialization pass. Cron recomputes each next
// firing from wall-clock time, so the daily entries never drift and
// self-correct across restarts. Overlap protection lives inside the
// services themselves.
type ReminderScheduler struct {
	cronEngine  *cron.Cron
	window      *app.WindowReminderService
	batch       *app.BatchReminderService
	materialize *app.MaterializerService
	logger      *logrus.Entry

	cronSpecWindow       string
	cronSpecBatchMorning string
	cronSpecBatchEvening string
	cronSpecMaterialize  string
	horizonDays          int
}

func NewReminderScheduler(
	window *app.WindowReminderService,
	batch *app.BatchReminderService,
	materialize *app.MaterializerService,
	logger *logrus.Entry,
	cronSpecWindow string,
	cronSpecBatchMorning string,
	cronSpecBatchEvening string,
	cronSpecMaterialize string,
	horizonDays int,
) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine:           cron.New(cron.WithLocation(time.Local)),
		window:               window,
		batch:                batch,
		materialize:          materialize,
		logger:               logger,
		cronSpecWindow:       cronSpecWindow,
		cronSpecBatchMorning: cronSpecBatchMorning,
		cronSpecBatchEvening: cronSpecBatchEvening,
		cronSpecMaterialize:  cronSpecMaterialize,
		horizonDays:          horizonDays,
	}
}

func (s *ReminderScheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.cronSpecWindow, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.window.ProcessDueReminders(ctx); err != nil {
			s.logger.WithError(err).Error("precise window tick failed")
		}
	}); err != nil {
		return err
	}

	batchJob := func() {
		// Generous bound: a large batch paced at one message a minute can
		// legitimately run for a while.
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Hour)
		defer cancel()
		if err := s.batch.RunDailyBatch(ctx); err != nil {
			s.logger.WithError(err).Error("daily batch firing failed")
		}
	}
	if _, err := s.cronEngine.AddFunc(s.cronSpecBatchMorning, batchJob); err != nil {
		return err
	}
	if _, err := s.cronEngine.AddFunc(s.cronSpecBatchEvening, batchJob); err != nil {
		return err
	}

	if _, err := s.cronEngine.AddFunc(s.cronSpecMaterialize, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.materialize.MaterializeAllUpcoming(ctx, s.horizonDays); err != nil {
			s.logger.WithError(err).Error("materialization pass failed")
		}
	}); err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"window":      s.cronSpecWindow,
		"batch_am":    s.cronSpecBatchMorning,
		"batch_pm":    s.cronSpecBatchEvening,
		"materialize": s.cronSpecMaterialize,
	}).Info("reminder scheduler started")
	return nil
}

// Stop halts the cron engine and waits for in-flight jobs to finish.
func (s *ReminderScheduler) Stop() {
	s.logger.Info("stopping reminder scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("reminder scheduler stopped")
}
