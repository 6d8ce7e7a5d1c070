package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/splitpay/backend/internal/cache"
	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/events"
	"github.com/splitpay/backend/internal/models"
	"github.com/splitpay/backend/internal/repositories"
)

const (
	testRequesterWallet = "0x1111111111111111111111111111111111111111"
	testPayerWallet     = "0x2222222222222222222222222222222222222222"
	testToken           = "0x3333333333333333333333333333333333333333"
)

func testTxHash(c string) string {
	return "0x" + strings.Repeat(c, 64)
}

type memRequestStore struct {
	requests    map[uuid.UUID]*models.RequestWithRequester
	sent        []models.RequestWithRequester
	incoming    []models.RequestWithRequester
	overdue     []models.RequestWithRequester
	sentErr     error
	incomingErr error
	updateCalls int
}

func newMemRequestStore() *memRequestStore {
	return &memRequestStore{requests: make(map[uuid.UUID]*models.RequestWithRequester)}
}

func (m *memRequestStore) put(req models.RequestWithRequester) {
	m.requests[req.ID] = &req
}

func (m *memRequestStore) Create(_ context.Context, req *models.PaymentRequest) error {
	req.ID = uuid.New()
	req.Status = models.RequestStatusPending
	req.CreatedAt = time.Now()
	m.put(models.RequestWithRequester{PaymentRequest: *req, RequesterWalletAddress: testRequesterWallet})
	return nil
}

func (m *memRequestStore) CreateTransfer(_ context.Context, req *models.PaymentRequest, txHash string) error {
	req.ID = uuid.New()
	req.Status = models.RequestStatusPaid
	req.TxHash = &txHash
	now := time.Now()
	req.PaidAt = &now
	req.CreatedAt = now
	m.put(models.RequestWithRequester{PaymentRequest: *req, RequesterWalletAddress: testRequesterWallet})
	return nil
}

func (m *memRequestStore) GetByID(_ context.Context, id uuid.UUID) (*models.RequestWithRequester, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memRequestStore) ListIncoming(_ context.Context, _ string, _ int) ([]models.RequestWithRequester, error) {
	return m.incoming, m.incomingErr
}

func (m *memRequestStore) ListSent(_ context.Context, _ uuid.UUID, _ int) ([]models.RequestWithRequester, error) {
	return m.sent, m.sentErr
}

func (m *memRequestStore) ListExpired(_ context.Context, _ int) ([]models.RequestWithRequester, error) {
	return m.overdue, nil
}

func (m *memRequestStore) UpdateStatus(_ context.Context, id uuid.UUID, fromStatus, toStatus string, txHash *string) error {
	req, ok := m.requests[id]
	if !ok || req.Status != fromStatus {
		return repositories.ErrNotFound
	}
	m.updateCalls++
	req.Status = toStatus
	if toStatus == models.RequestStatusPaid {
		req.TxHash = txHash
		now := time.Now()
		req.PaidAt = &now
	}
	return nil
}

type memContactStore struct {
	existing map[string]bool
	created  []models.Contact
}

func (m *memContactStore) ExistsForOwner(_ context.Context, _ uuid.UUID, walletAddress string) (bool, error) {
	return m.existing[walletAddress], nil
}

func (m *memContactStore) Create(_ context.Context, c *models.Contact) error {
	c.ID = uuid.New()
	m.created = append(m.created, *c)
	return nil
}

type memActivityStore struct {
	entries []models.ActivityLog
}

func (m *memActivityStore) Log(_ context.Context, entry models.ActivityLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memActivityStore) GetByEntity(_ context.Context, _ string, _ uuid.UUID, _, _ int) ([]models.ActivityLog, error) {
	return m.entries, nil
}

type memPublisher struct {
	published []events.Event
}

func (m *memPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	m.published = append(m.published, event)
	return nil
}

func (m *memPublisher) countByType(eventType string) int {
	n := 0
	for _, e := range m.published {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type serviceFixture struct {
	svc       *RequestService
	store     *memRequestStore
	contacts  *memContactStore
	publisher *memPublisher
	rdb       *redis.Client
	lists     *cache.ListCache
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := zap.NewNop()
	cfg := &config.Config{
		ChainID:                8453,
		USDCTokenAddress:       testToken,
		MinAmount:              decimal.RequireFromString("0.01"),
		MaxAmount:              decimal.RequireFromString("10000"),
		HistoryRefreshInterval: 30 * time.Second,
	}

	store := newMemRequestStore()
	contacts := &memContactStore{existing: make(map[string]bool)}
	publisher := &memPublisher{}
	lists := cache.NewListCache(rdb, log)

	svc := NewRequestService(store, contacts, &memActivityStore{}, lists, rdb,
		NewNotifierClient("", log), publisher, cfg, log)
	return &serviceFixture{svc: svc, store: store, contacts: contacts, publisher: publisher, rdb: rdb, lists: lists}
}

func pendingRequest(id uuid.UUID) models.RequestWithRequester {
	return models.RequestWithRequester{
		PaymentRequest: models.PaymentRequest{
			ID:                 id,
			RequesterID:        uuid.New(),
			Type:               models.RequestTypeRequest,
			PayerWalletAddress: testPayerWallet,
			TokenAddress:       testToken,
			ChainID:            8453,
			Amount:             2_500_000,
			Status:             models.RequestStatusPending,
			CreatedAt:          time.Now(),
		},
		RequesterWalletAddress: testRequesterWallet,
	}
}

func TestConfirmPaidRunsOnce(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id := uuid.New()
	f.store.put(pendingRequest(id))
	hash := testTxHash("a")

	if err := f.svc.ConfirmPaid(ctx, id, hash); err != nil {
		t.Fatalf("first confirmation failed: %v", err)
	}
	// The watcher and an optimistic client both reporting the same
	// payment must collapse into one status write.
	if err := f.svc.ConfirmPaid(ctx, id, hash); err != nil {
		t.Fatalf("repeated confirmation should be a no-op, got %v", err)
	}

	if f.store.updateCalls != 1 {
		t.Errorf("status updated %d times, want 1", f.store.updateCalls)
	}
	req, _ := f.store.GetByID(ctx, id)
	if req.Status != models.RequestStatusPaid {
		t.Errorf("status = %q, want paid", req.Status)
	}
	if req.TxHash == nil || *req.TxHash != hash || req.PaidAt == nil {
		t.Error("tx_hash and paid_at must be set together on paid")
	}
	if n := f.publisher.countByType(events.EventPaymentConfirmed); n != 1 {
		t.Errorf("published %d confirmation events, want 1", n)
	}
}

func TestConfirmPaidReleasesLockOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id := uuid.New()
	hash := testTxHash("b")

	// Request not in the store yet: confirmation fails and must not
	// burn the lock for the retry.
	if err := f.svc.ConfirmPaid(ctx, id, hash); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}

	f.store.put(pendingRequest(id))
	if err := f.svc.ConfirmPaid(ctx, id, hash); err != nil {
		t.Fatalf("retry after failure should succeed, got %v", err)
	}
	if f.store.updateCalls != 1 {
		t.Errorf("status updated %d times, want 1", f.store.updateCalls)
	}
}

func TestConfirmPaidClearsWatchWhenAlreadyPaid(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id := uuid.New()
	hash := testTxHash("c")
	req := pendingRequest(id)
	req.Status = models.RequestStatusPaid
	req.TxHash = &hash
	now := time.Now()
	req.PaidAt = &now
	f.store.put(req)

	f.rdb.SAdd(ctx, WatchSetKey, hash)
	f.rdb.Set(ctx, WatchTxKey+hash, id.String(), time.Hour)

	if err := f.svc.ConfirmPaid(ctx, id, hash); err != nil {
		t.Fatalf("confirming an already paid request should be a no-op, got %v", err)
	}
	if f.store.updateCalls != 0 {
		t.Errorf("status updated %d times, want 0", f.store.updateCalls)
	}
	if member, _ := f.rdb.SIsMember(ctx, WatchSetKey, hash).Result(); member {
		t.Error("tx hash still in the watch set after confirmation")
	}
	if _, err := f.rdb.Get(ctx, WatchTxKey+hash).Result(); !errors.Is(err, redis.Nil) {
		t.Error("watch mapping still present after confirmation")
	}
}

func TestLoadHistoryPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	profile := &models.Profile{ID: uuid.New(), WalletAddress: testRequesterWallet}

	sent := pendingRequest(uuid.New())
	f.store.sent = []models.RequestWithRequester{sent}
	f.store.incomingErr = errors.New("connection refused")

	entries, warnings, err := f.svc.LoadHistory(ctx, profile, false)
	if err != nil {
		t.Fatalf("one failed source must not fail the load: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != sent.ID {
		t.Fatalf("expected the surviving sent entry, got %d entries", len(entries))
	}
	if len(warnings) != 1 || warnings[0] != "failed to load incoming requests" {
		t.Errorf("warnings = %v, want the incoming-list warning", warnings)
	}
	// Partial results must never be written back as a snapshot.
	if _, ok := f.lists.GetHistory(ctx, profile.WalletAddress); ok {
		t.Error("partial history was cached")
	}

	f.store.sentErr = errors.New("connection refused")
	if _, _, err := f.svc.LoadHistory(ctx, profile, false); err == nil {
		t.Error("both sources failing must surface an error")
	}

	f.store.sentErr = nil
	f.store.incomingErr = nil
	entries, warnings, err = f.svc.LoadHistory(ctx, profile, false)
	if err != nil || len(warnings) != 0 || len(entries) != 1 {
		t.Fatalf("clean load: entries=%d warnings=%v err=%v", len(entries), warnings, err)
	}
	if _, ok := f.lists.GetHistory(ctx, profile.WalletAddress); !ok {
		t.Error("successful load was not cached")
	}
}

func TestLoadHistoryForcedRefreshThrottled(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	profile := &models.Profile{ID: uuid.New(), WalletAddress: testRequesterWallet}

	f.store.sent = []models.RequestWithRequester{pendingRequest(uuid.New())}
	entries, _, err := f.svc.LoadHistory(ctx, profile, true)
	if err != nil || len(entries) != 1 {
		t.Fatalf("initial refresh: entries=%d err=%v", len(entries), err)
	}

	// Another forced refresh inside the interval serves the snapshot.
	f.store.sent = append(f.store.sent, pendingRequest(uuid.New()))
	entries, _, err = f.svc.LoadHistory(ctx, profile, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("throttled refresh returned %d entries, want the 1 cached", len(entries))
	}
}

func TestRecordTransferSavesContact(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	sender := &models.Profile{ID: uuid.New(), WalletAddress: testRequesterWallet}

	transfer, err := f.svc.RecordTransfer(ctx, sender, RecordTransferInput{
		RecipientAddress: "0x" + strings.ToUpper(testPayerWallet[2:]),
		Amount:           "25",
		TxHash:           testTxHash("d"),
		SaveContact:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if transfer.Status != models.RequestStatusPaid || transfer.TxHash == nil || transfer.PaidAt == nil {
		t.Error("direct transfer must be born paid with tx_hash and paid_at")
	}
	if transfer.PayerWalletAddress != testPayerWallet {
		t.Errorf("recipient not lowercased: %q", transfer.PayerWalletAddress)
	}

	if len(f.contacts.created) != 1 {
		t.Fatalf("saved %d contacts, want 1", len(f.contacts.created))
	}
	c := f.contacts.created[0]
	if c.ContactWalletAddress != testPayerWallet || c.OwnerID != sender.ID {
		t.Errorf("contact = %+v", c)
	}
	if c.Label != testPayerWallet[:10] {
		t.Errorf("label fallback = %q, want wallet prefix", c.Label)
	}
}

func TestRecordTransferSkipsKnownContact(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	sender := &models.Profile{ID: uuid.New(), WalletAddress: testRequesterWallet}
	f.contacts.existing[testPayerWallet] = true

	_, err := f.svc.RecordTransfer(ctx, sender, RecordTransferInput{
		RecipientAddress: testPayerWallet,
		Amount:           "5",
		TxHash:           testTxHash("e"),
		SaveContact:      true,
		ContactLabel:     "alice",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.contacts.created) != 0 {
		t.Errorf("existing contact duplicated %d times", len(f.contacts.created))
	}

	_, err = f.svc.RecordTransfer(ctx, sender, RecordTransferInput{
		RecipientAddress: testPayerWallet,
		Amount:           "5",
		TxHash:           testTxHash("f"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.contacts.created) != 0 {
		t.Error("contact saved without save_contact")
	}
}

func TestExpireOverdueInvalidatesBothParties(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id := uuid.New()
	req := pendingRequest(id)
	past := time.Now().Add(-time.Hour)
	req.ExpiresAt = &past
	f.store.put(req)
	f.store.overdue = []models.RequestWithRequester{req}

	f.lists.SetHistory(ctx, testRequesterWallet, []models.HistoryEntry{{RequestWithRequester: req, Direction: models.DirectionSent}})
	f.lists.SetHistory(ctx, testPayerWallet, []models.HistoryEntry{{RequestWithRequester: req, Direction: models.DirectionReceived}})

	n, err := f.svc.ExpireOverdue(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expired %d requests, want 1", n)
	}
	got, _ := f.store.GetByID(ctx, id)
	if got.Status != models.RequestStatusExpired {
		t.Errorf("status = %q, want expired", got.Status)
	}
	if _, ok := f.lists.GetHistory(ctx, testRequesterWallet); ok {
		t.Error("requester snapshot survived the expiry sweep")
	}
	if _, ok := f.lists.GetHistory(ctx, testPayerWallet); ok {
		t.Error("payer snapshot survived the expiry sweep")
	}
}
