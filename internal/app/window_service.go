package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"salon_reminder_service/internal/domain/appointment"
	"salon_reminder_service/internal/domain/client"
	"salon_reminder_service/internal/domain/delivery"
	"salon_reminder_service/internal/domain/notify"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// Tolerance band around the 24-hour mark, sized to absorb the coarse
	// polling granularity: a reminder is due when the appointment start minus
	// 24h falls within [now-10m, now+60m].
	windowLookback  = 10 * time.Minute
	windowLookahead = 60 * time.Minute

	reminderLeadTime = 24 * time.Hour

	windowTemplateName = "appointment_reminder_24h"
)

// WindowReminderService is the core of the precise window scheduler: a
// short-interval poller that finds appointments crossing the 24-hours-before
// threshold and sends a single reminder per appointment. Ticks arriving
// while a previous tick is still running are skipped entirely, not queued.
type WindowReminderService struct {
	apptRepo     appointment.Repository
	deliveryRepo delivery.Repository
	directory    client.Directory
	gateway      notify.Gateway
	logger       *logrus.Entry
	limiter      *rate.Limiter
	maxAttempts  int
	now          Clock
	running      atomic.Bool
}

func NewWindowReminderService(
	ar appointment.Repository,
	dr delivery.Repository,
	dir client.Directory,
	gw notify.Gateway,
	logger *logrus.Entry,
	sendDelay time.Duration,
	maxAttempts int,
	now Clock,
) *WindowReminderService {
	if now == nil {
		now = time.Now
	}
	return &WindowReminderService{
		apptRepo:     ar,
		deliveryRepo: dr,
		directory:    dir,
		gateway:      gw,
		logger:       logger,
		limiter:      rate.NewLimiter(rate.Every(sendDelay), 1),
		maxAttempts:  maxAttempts,
		now:          now,
	}
}

// ProcessDueReminders runs one tick. Sends within a tick are strictly
// sequential with a fixed inter-send delay to respect the provider's rate
// limit; a failed send leaves the appointment eligible for the next tick.
func (s *WindowReminderService) ProcessDueReminders(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous tick still running, skipping")
		return nil
	}
	defer s.running.Store(false)

	now := s.now()
	from := now.Add(reminderLeadTime - windowLookback)
	to := now.Add(reminderLeadTime + windowLookahead)

	candidates, err := s.apptRepo.ListPendingInWindow(ctx, from, to, s.maxAttempts)
	if err != nil {
		return fmt.Errorf("listing appointments in reminder window: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	runID := uuid.NewString()
	log := s.logger.WithField("run_id", runID)
	log.WithField("candidates", len(candidates)).Info("processing reminder window")

	var sent, failed, skipped int
	for _, appt := range candidates {
		if appt.ReminderSent {
			continue
		}

		cl, err := s.directory.GetByID(ctx, appt.ClientID)
		if err != nil {
			log.WithError(err).WithField("appointment_id", appt.ID).Error("client lookup failed, skipping")
			skipped++
			continue
		}
		if !cl.HasValidPhone() {
			log.WithFields(logrus.Fields{
				"appointment_id": appt.ID,
				"client_id":      cl.ID,
			}).Warn("client has no valid phone, skipping reminder")
			skipped++
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle wait interrupted: %w", err)
		}

		providerID, err := s.gateway.SendTemplate(ctx, cl.Phone, windowTemplateName, []string{
			cl.FirstName,
			appt.Date.Format("2006-01-02"),
			appt.StartTime,
		})
		if err != nil {
			// Left un-reminded: eligible again on a later tick, up to the
			// attempt cap.
			failed++
			log.WithError(err).WithField("appointment_id", appt.ID).Error("reminder send failed")
			if err := s.apptRepo.IncrementReminderAttempts(ctx, appt.ID); err != nil {
				log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to record send attempt")
			}
			continue
		}

		if err := s.apptRepo.MarkReminderSent(ctx, appt.ID); err != nil {
			log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to mark reminder sent")
		}
		if err := s.deliveryRepo.RecordSent(ctx, &delivery.SentMessage{
			ProviderMessageID: providerID,
			RecipientPhone:    cl.Phone,
			TemplateName:      windowTemplateName,
			AppointmentIDs:    []int64{appt.ID},
			SentAt:            now,
		}); err != nil {
			log.WithError(err).WithField("provider_message_id", providerID).Error("failed to record sent message")
		}
		sent++
	}

	log.WithFields(logrus.Fields{
		"sent":    sent,
		"failed":  failed,
		"skipped": skipped,
	}).Info("reminder window tick complete")
	return nil
}
