package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"salon_reminder_service/internal/domain/appointment"
	"salon_reminder_service/internal/domain/catalog"
	"salon_reminder_service/internal/domain/client"
	"salon_reminder_service/internal/domain/delivery"
	"salon_reminder_service/internal/domain/recurrence"

	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("component", "test")
}

// fixedClock returns a Clock pinned to t.
func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// --- recurrence.Repository fake ---

type fakeRuleRepo struct {
	mu     sync.Mutex
	rules  map[int64]*recurrence.Rule
	nextID int64
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[int64]*recurrence.Rule), nextID: 1}
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *recurrence.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.ID = r.nextID
	r.nextID++
	copied := *rule
	r.rules[rule.ID] = &copied
	return nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id int64) (*recurrence.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %d not found", id)
	}
	copied := *rule
	return &copied, nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *recurrence.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *rule
	r.rules[rule.ID] = &copied
	return nil
}

func (r *fakeRuleRepo) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return fmt.Errorf("rule %d not found", id)
	}
	rule.IsActive = false
	return nil
}

func (r *fakeRuleRepo) ListActive(_ context.Context) ([]*recurrence.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*recurrence.Rule, 0)
	for _, rule := range r.rules {
		if rule.IsActive {
			copied := *rule
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRuleRepo) ListActiveForClient(ctx context.Context, clientID int64) ([]*recurrence.Rule, error) {
	all, _ := r.ListActive(ctx)
	out := make([]*recurrence.Rule, 0)
	for _, rule := range all {
		if rule.ClientID == clientID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) AdvanceSchedule(_ context.Context, id int64, firedDate, nextDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return fmt.Errorf("rule %d not found", id)
	}
	rule.LastFiredDate.Time = firedDate
	rule.LastFiredDate.Valid = true
	rule.NextOccurrenceDate.Time = nextDate
	rule.NextOccurrenceDate.Valid = true
	return nil
}

// --- appointment.Repository fake ---

type fakeApptRepo struct {
	mu            sync.Mutex
	appts         []*appointment.Appointment
	nextID        int64
	bulkCalls     int
	markCalls     int
	listDateCalls int
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{nextID: 1}
}

func (r *fakeApptRepo) Create(_ context.Context, appt *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt.ID = r.nextID
	r.nextID++
	copied := *appt
	r.appts = append(r.appts, &copied)
	return nil
}

func (r *fakeApptRepo) GetByID(_ context.Context, id int64) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, appt := range r.appts {
		if appt.ID == id {
			copied := *appt
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("appointment %d not found", id)
}

func (r *fakeApptRepo) ListByClientAndDate(_ context.Context, clientID int64, date time.Time) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*appointment.Appointment, 0)
	for _, appt := range r.appts {
		if appt.ClientID == clientID && appt.Date.Equal(recurrence.DateOnly(date)) &&
			appt.Status != appointment.StatusCancelled {
			copied := *appt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeApptRepo) ListForDate(_ context.Context, date time.Time) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listDateCalls++
	out := make([]*appointment.Appointment, 0)
	for _, appt := range r.appts {
		if appt.Date.Equal(recurrence.DateOnly(date)) {
			copied := *appt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeApptRepo) CountPendingReminders(_ context.Context, date time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, appt := range r.appts {
		if appt.Date.Equal(recurrence.DateOnly(date)) &&
			appt.Status == appointment.StatusScheduled && !appt.ReminderSent {
			count++
		}
	}
	return count, nil
}

func (r *fakeApptRepo) ListPendingInWindow(_ context.Context, from, to time.Time, maxAttempts int) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*appointment.Appointment, 0)
	for _, appt := range r.appts {
		start := appt.StartAt()
		if appt.Status == appointment.StatusScheduled && !appt.ReminderSent &&
			appt.ReminderAttempts < maxAttempts &&
			!start.Before(from) && !start.After(to) {
			copied := *appt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeApptRepo) MarkReminderSent(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls++
	for _, appt := range r.appts {
		if appt.ID == id {
			appt.ReminderSent = true
			return nil
		}
	}
	return fmt.Errorf("appointment %d not found", id)
}

func (r *fakeApptRepo) MarkRemindedBulk(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkCalls++
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for _, appt := range r.appts {
		if _, ok := set[appt.ID]; ok {
			appt.ReminderSent = true
		}
	}
	return nil
}

func (r *fakeApptRepo) IncrementReminderAttempts(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, appt := range r.appts {
		if appt.ID == id {
			appt.ReminderAttempts++
			return nil
		}
	}
	return fmt.Errorf("appointment %d not found", id)
}

func (r *fakeApptRepo) UpdateStatus(_ context.Context, id int64, status appointment.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, appt := range r.appts {
		if appt.ID == id {
			appt.Status = status
			return nil
		}
	}
	return fmt.Errorf("appointment %d not found", id)
}

// --- delivery.Repository fake ---

type eventKey struct {
	messageID string
	status    delivery.Status
}

type fakeDeliveryRepo struct {
	mu     sync.Mutex
	sent   []*delivery.SentMessage
	events map[eventKey]*delivery.StatusEvent
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{events: make(map[eventKey]*delivery.StatusEvent)}
}

func (r *fakeDeliveryRepo) RecordSent(_ context.Context, msg *delivery.SentMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.sent = append(r.sent, &copied)
	return nil
}

func (r *fakeDeliveryRepo) GetSentMessage(_ context.Context, providerMessageID string) (*delivery.SentMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.sent {
		if msg.ProviderMessageID == providerMessageID {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("message %s not found", providerMessageID)
}

func (r *fakeDeliveryRepo) UpsertStatusEvent(_ context.Context, event *delivery.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *event
	r.events[eventKey{event.ProviderMessageID, event.Status}] = &copied
	return nil
}

// CurrentStatus mirrors the SQL resolution: latest provider timestamp wins,
// rank breaks ties.
func (r *fakeDeliveryRepo) CurrentStatus(_ context.Context, providerMessageID string) (delivery.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *delivery.StatusEvent
	for key, event := range r.events {
		if key.messageID != providerMessageID {
			continue
		}
		if best == nil ||
			event.EventTimestamp.After(best.EventTimestamp) ||
			(event.EventTimestamp.Equal(best.EventTimestamp) && event.Status.Rank() > best.Status.Rank()) {
			best = event
		}
	}
	if best == nil {
		for _, msg := range r.sent {
			if msg.ProviderMessageID == providerMessageID {
				return delivery.StatusPending, nil
			}
		}
		return "", fmt.Errorf("message %s not found", providerMessageID)
	}
	return best.Status, nil
}

func (r *fakeDeliveryRepo) ListMessageStatuses(context.Context, string, time.Time, time.Time) ([]*delivery.MessageStatus, error) {
	return nil, nil
}

func (r *fakeDeliveryRepo) CountByStatus(ctx context.Context, from, to time.Time) (*delivery.StatusCounts, error) {
	r.mu.Lock()
	sentCopy := make([]*delivery.SentMessage, len(r.sent))
	copy(sentCopy, r.sent)
	r.mu.Unlock()

	counts := &delivery.StatusCounts{}
	for _, msg := range sentCopy {
		if msg.SentAt.Before(from) || !msg.SentAt.Before(to) {
			continue
		}
		status, err := r.CurrentStatus(ctx, msg.ProviderMessageID)
		if err != nil {
			return nil, err
		}
		switch status {
		case delivery.StatusSent:
			counts.Sent++
		case delivery.StatusDelivered:
			counts.Delivered++
		case delivery.StatusRead:
			counts.Read++
		case delivery.StatusFailed:
			counts.Failed++
		default:
			counts.Pending++
		}
	}
	return counts, nil
}

func (r *fakeDeliveryRepo) FailureBreakdown(context.Context, time.Time, time.Time) ([]*delivery.FailureGroup, error) {
	return nil, nil
}

func (r *fakeDeliveryRepo) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// --- client.Directory and catalog.Catalog fakes ---

type fakeDirectory struct {
	clients map[int64]*client.Client
}

func (d *fakeDirectory) GetByID(_ context.Context, id int64) (*client.Client, error) {
	c, ok := d.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %d not found", id)
	}
	return c, nil
}

type fakeCatalog struct {
	services map[int64]*catalog.Service
}

func (c *fakeCatalog) GetServiceByID(_ context.Context, id int64) (*catalog.Service, error) {
	svc, ok := c.services[id]
	if !ok {
		return nil, fmt.Errorf("service %d not found", id)
	}
	return svc, nil
}

// --- notify.Gateway fake ---

type sendCall struct {
	recipient string
	template  string
	params    []string
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []sendCall
	failFor map[string]error // keyed by recipient
	nextID  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failFor: make(map[string]error), nextID: 1}
}

func (g *fakeGateway) SendTemplate(_ context.Context, recipient, template string, params []string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, sendCall{recipient: recipient, template: template, params: params})
	if err, ok := g.failFor[recipient]; ok {
		return "", err
	}
	id := fmt.Sprintf("wamid.%d", g.nextID)
	g.nextID++
	return id, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
