package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"salon_reminder_service/internal/domain/appointment"
	"salon_reminder_service/internal/domain/client"
)

func newWindowFixture(now time.Time) (*WindowReminderService, *fakeApptRepo, *fakeDeliveryRepo, *fakeGateway) {
	apptRepo := newFakeApptRepo()
	deliveryRepo := newFakeDeliveryRepo()
	gateway := newFakeGateway()
	directory := &fakeDirectory{clients: map[int64]*client.Client{
		1: {ID: 1, FirstName: "Dana", Phone: "+15551234567", IsActive: true},
		2: {ID: 2, FirstName: "Noor", Phone: "", IsActive: true}, // no contact
	}}
	svc := NewWindowReminderService(apptRepo, deliveryRepo, directory, gateway,
		discardLogger(), 0, 10, fixedClock(now))
	return svc, apptRepo, deliveryRepo, gateway
}

func scheduledAppt(clientID int64, date time.Time, startTime string) *appointment.Appointment {
	return &appointment.Appointment{
		ClientID:  clientID,
		StylistID: 1,
		ServiceID: 10,
		Date:      date,
		StartTime: startTime,
		EndTime:   "11:00",
		Status:    appointment.StatusScheduled,
	}
}

func TestWindowTickSendsExactlyOnce(t *testing.T) {
	apptStart := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	now := apptStart.Add(-24*time.Hour - 5*time.Minute)
	svc, apptRepo, deliveryRepo, gateway := newWindowFixture(now)
	ctx := context.Background()

	appt := scheduledAppt(1, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), "10:00")
	if err := apptRepo.Create(ctx, appt); err != nil {
		t.Fatalf("creating appointment: %v", err)
	}

	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if gateway.callCount() != 1 {
		t.Fatalf("first tick made %d sends, want 1", gateway.callCount())
	}

	stored, err := apptRepo.GetByID(ctx, appt.ID)
	if err != nil {
		t.Fatalf("reloading appointment: %v", err)
	}
	if !stored.ReminderSent {
		t.Fatal("appointment not marked reminded after successful send")
	}
	if len(deliveryRepo.sent) != 1 {
		t.Fatalf("send log holds %d records, want 1", len(deliveryRepo.sent))
	}

	// Second tick with an unchanged clock: nothing left to send.
	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if gateway.callCount() != 1 {
		t.Fatalf("second tick added sends: total %d, want 1", gateway.callCount())
	}
}

func TestWindowTickIgnoresAppointmentsOutsideBand(t *testing.T) {
	apptStart := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	// Clock far enough out that start-24h is not yet inside the band.
	now := apptStart.Add(-26 * time.Hour)
	svc, apptRepo, _, gateway := newWindowFixture(now)
	ctx := context.Background()

	appt := scheduledAppt(1, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), "10:00")
	if err := apptRepo.Create(ctx, appt); err != nil {
		t.Fatalf("creating appointment: %v", err)
	}

	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if gateway.callCount() != 0 {
		t.Fatalf("appointment outside the window was sent to %d times", gateway.callCount())
	}
}

func TestWindowTickFailureLeavesAppointmentEligible(t *testing.T) {
	apptStart := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	now := apptStart.Add(-24 * time.Hour)
	svc, apptRepo, deliveryRepo, gateway := newWindowFixture(now)
	ctx := context.Background()

	gateway.failFor["+15551234567"] = fmt.Errorf("provider unavailable")

	appt := scheduledAppt(1, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), "10:00")
	if err := apptRepo.Create(ctx, appt); err != nil {
		t.Fatalf("creating appointment: %v", err)
	}

	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	stored, err := apptRepo.GetByID(ctx, appt.ID)
	if err != nil {
		t.Fatalf("reloading appointment: %v", err)
	}
	if stored.ReminderSent {
		t.Fatal("failed send must leave reminderSent = false")
	}
	if stored.ReminderAttempts != 1 {
		t.Fatalf("reminder attempts = %d, want 1", stored.ReminderAttempts)
	}
	if len(deliveryRepo.sent) != 0 {
		t.Fatalf("failed send must not produce a sent-message record, got %d", len(deliveryRepo.sent))
	}

	// Provider recovers: the next tick retries and succeeds.
	delete(gateway.failFor, "+15551234567")
	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("retry tick: %v", err)
	}
	stored, _ = apptRepo.GetByID(ctx, appt.ID)
	if !stored.ReminderSent {
		t.Fatal("retry tick did not send the reminder")
	}
}

func TestWindowTickSkipsMissingContact(t *testing.T) {
	apptStart := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	now := apptStart.Add(-24 * time.Hour)
	svc, apptRepo, _, gateway := newWindowFixture(now)
	ctx := context.Background()

	appt := scheduledAppt(2, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), "10:00")
	if err := apptRepo.Create(ctx, appt); err != nil {
		t.Fatalf("creating appointment: %v", err)
	}

	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if gateway.callCount() != 0 {
		t.Fatalf("invalid contact still produced %d sends", gateway.callCount())
	}
	stored, _ := apptRepo.GetByID(ctx, appt.ID)
	if stored.ReminderSent {
		t.Fatal("skipped appointment must stay un-reminded")
	}
}

func TestWindowTickSkipsWhileRunning(t *testing.T) {
	apptStart := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	now := apptStart.Add(-24 * time.Hour)
	svc, apptRepo, _, gateway := newWindowFixture(now)
	ctx := context.Background()

	appt := scheduledAppt(1, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), "10:00")
	if err := apptRepo.Create(ctx, appt); err != nil {
		t.Fatalf("creating appointment: %v", err)
	}

	// Simulate an in-flight tick: the overlapping one must bail out.
	svc.running.Store(true)
	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("overlapping tick: %v", err)
	}
	if gateway.callCount() != 0 {
		t.Fatalf("overlapping tick performed %d sends, want 0", gateway.callCount())
	}
	svc.running.Store(false)

	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("follow-up tick: %v", err)
	}
	if gateway.callCount() != 1 {
		t.Fatalf("follow-up tick made %d sends, want 1", gateway.callCount())
	}
}

func TestWindowTickStopsRetryingAfterAttemptCap(t *testing.T) {
	apptStart := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC)
	now := apptStart.Add(-24 * time.Hour)
	svc, apptRepo, _, gateway := newWindowFixture(now)
	ctx := context.Background()

	appt := scheduledAppt(1, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), "10:00")
	appt.ReminderAttempts = 10 // at the cap configured by the fixture
	if err := apptRepo.Create(ctx, appt); err != nil {
		t.Fatalf("creating appointment: %v", err)
	}

	if err := svc.ProcessDueReminders(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if gateway.callCount() != 0 {
		t.Fatalf("capped appointment still produced %d sends", gateway.callCount())
	}
}
