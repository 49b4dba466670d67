package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"salon_reminder_service/internal/domain/appointment"
	"salon_reminder_service/internal/domain/catalog"
	"salon_reminder_service/internal/domain/client"
	"salon_reminder_service/internal/domain/delivery"
	"salon_reminder_service/internal/domain/notify"
	"salon_reminder_service/internal/domain/recurrence"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const batchTemplateName = "appointment_reminder_next_day"

// BatchReminderService is the core of the daily batch scheduler. Each firing
// targets tomorrow's appointments: it short-circuits on a lightweight count,
// partitions the day's rows, groups them per recipient so a client with
// several same-day bookings gets one combined message, paces the sends, and
// finishes with a single bulk write marking everything sent.
type BatchReminderService struct {
	apptRepo     appointment.Repository
	deliveryRepo delivery.Repository
	directory    client.Directory
	catalog      catalog.Catalog
	gateway      notify.Gateway
	logger       *logrus.Entry
	limiter      *rate.Limiter
	now          Clock
	running      atomic.Bool
}

func NewBatchReminderService(
	ar appointment.Repository,
	dr delivery.Repository,
	dir client.Directory,
	cat catalog.Catalog,
	gw notify.Gateway,
	logger *logrus.Entry,
	sendDelay time.Duration,
	now Clock,
) *BatchReminderService {
	if now == nil {
		now = time.Now
	}
	return &BatchReminderService{
		apptRepo:     ar,
		deliveryRepo: dr,
		directory:    dir,
		catalog:      cat,
		gateway:      gw,
		logger:       logger,
		limiter:      rate.NewLimiter(rate.Every(sendDelay), 1),
		now:          now,
	}
}

type recipientGroup struct {
	client *client.Client
	appts  []*appointment.Appointment
}

// RunDailyBatch executes one firing for target date now+1d. A firing that
// arrives while a previous one is still running is skipped, not queued. A
// failed send for one recipient never aborts the batch.
func (s *BatchReminderService) RunDailyBatch(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous batch still running, skipping firing")
		return nil
	}
	defer s.running.Store(false)

	targetDate := recurrence.DateOnly(s.now()).AddDate(0, 0, 1)
	runID := uuid.NewString()
	log := s.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"target_date": targetDate.Format("2006-01-02"),
	})

	// Fast path: skip the heavy load entirely on a no-op day.
	pending, err := s.apptRepo.CountPendingReminders(ctx, targetDate)
	if err != nil {
		return fmt.Errorf("counting pending reminders for %s: %w", targetDate.Format("2006-01-02"), err)
	}
	if pending == 0 {
		log.Info("no pending reminders, batch skipped")
		return nil
	}

	appts, err := s.apptRepo.ListForDate(ctx, targetDate)
	if err != nil {
		return fmt.Errorf("loading appointments for %s: %w", targetDate.Format("2006-01-02"), err)
	}

	groups, order, skipped := s.partition(ctx, log, appts)
	log.WithFields(logrus.Fields{
		"appointments": len(appts),
		"recipients":   len(order),
		"skipped":      skipped,
	}).Info("daily batch starting")

	sentAppointmentIDs := make([]int64, 0, len(appts))
	var failedRecipients int
	for _, phone := range order {
		group := groups[phone]

		// The inter-send delay is honored before every send, including the
		// one after a failure.
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle wait interrupted: %w", err)
		}

		providerID, err := s.sendCombined(ctx, group)
		if err != nil {
			failedRecipients++
			log.WithError(err).WithField("client_id", group.client.ID).Error("combined reminder send failed")
			continue
		}

		ids := make([]int64, 0, len(group.appts))
		for _, appt := range group.appts {
			ids = append(ids, appt.ID)
		}
		sentAppointmentIDs = append(sentAppointmentIDs, ids...)

		if err := s.deliveryRepo.RecordSent(ctx, &delivery.SentMessage{
			ProviderMessageID: providerID,
			RecipientPhone:    group.client.Phone,
			TemplateName:      batchTemplateName,
			AppointmentIDs:    ids,
			SentAt:            s.now(),
		}); err != nil {
			log.WithError(err).WithField("provider_message_id", providerID).Error("failed to record sent message")
		}
	}

	// N successful sends produce one write, not N writes.
	if len(sentAppointmentIDs) > 0 {
		if err := s.apptRepo.MarkRemindedBulk(ctx, sentAppointmentIDs); err != nil {
			return fmt.Errorf("bulk-marking %d appointments reminded: %w", len(sentAppointmentIDs), err)
		}
	}

	log.WithFields(logrus.Fields{
		"marked_sent":       len(sentAppointmentIDs),
		"failed_recipients": failedRecipients,
	}).Info("daily batch complete")
	return nil
}

// partition splits the day's appointments into eligible groups keyed by
// recipient phone, preserving first-seen order, and drops already-reminded,
// non-scheduled and invalid-contact rows.
func (s *BatchReminderService) partition(ctx context.Context, log *logrus.Entry, appts []*appointment.Appointment) (map[string]*recipientGroup, []string, int) {
	groups := make(map[string]*recipientGroup)
	order := make([]string, 0)
	var skipped int

	for _, appt := range appts {
		if appt.ReminderSent {
			skipped++
			continue
		}
		if appt.Status != appointment.StatusScheduled {
			skipped++
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

		group, ok := groups[cl.Phone]
		if !ok {
			group = &recipientGroup{client: cl}
			groups[cl.Phone] = group
			order = append(order, cl.Phone)
		}
		group.appts = append(group.appts, appt)
	}
	return groups, order, skipped
}

// sendCombined sends one message per recipient. The template only carries
// the first appointment's time and service even when several are grouped.
func (s *BatchReminderService) sendCombined(ctx context.Context, group *recipientGroup) (string, error) {
	first := group.appts[0]
	serviceName := "your appointment"
	if svc, err := s.catalog.GetServiceByID(ctx, first.ServiceID); err == nil {
		serviceName = svc.Name
	}

	return s.gateway.SendTemplate(ctx, group.client.Phone, batchTemplateName, []string{
		group.client.FirstName,
		first.Date.Format("2006-01-02"),
		first.StartTime,
		serviceName,
	})
}
