package services

import (
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

type recordingPublisher struct {
	mu       sync.Mutex
	payloads []webhook.Payload
}

func (p *recordingPublisher) Publish(payload webhook.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
}

func (p *recordingPublisher) events() []webhook.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]webhook.Event, 0, len(p.payloads))
	for _, payload := range p.payloads {
		events = append(events, payload.Event)
	}
	return events
}

func yangon(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Yangon")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	return loc
}

type testServices struct {
	orders     *orderService
	settlement *settlementService
	banks      BankServicer
	identities IdentityServicer
	messages   MessageServicer
	events     *recordingPublisher
}

// newTestServices wires the order stack against db with the clock fixed at
// now.
func newTestServices(t *testing.T, db *gorm.DB, now time.Time) *testServices {
	t.Helper()

	events := &recordingPublisher{}
	banks := NewBankService(db)
	identities := NewIdentityService(db)
	audit := NewAuditService(db)

	orders := NewOrderService(db, banks, identities, audit, events, now.Location()).(*orderService)
	orders.now = func() time.Time { return now }

	settlement := NewSettlementService(db, banks, orders, audit, events).(*settlementService)
	settlement.now = func() time.Time { return now }

	return &testServices{
		orders:     orders,
		settlement: settlement,
		banks:      banks,
		identities: identities,
		messages:   NewMessageService(db, identities, orders, settlement, events),
		events:     events,
	}
}

func int64Ptr(v int64) *int64 { return &v }
