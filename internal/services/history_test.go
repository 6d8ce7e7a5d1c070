package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/splitpay/backend/internal/models"
)

func makeRequest(status string, created time.Time, paidAt *time.Time) models.RequestWithRequester {
	return models.RequestWithRequester{
		PaymentRequest: models.PaymentRequest{
			ID:                 uuid.New(),
			RequesterID:        uuid.New(),
			Type:               models.RequestTypeRequest,
			PayerWalletAddress: "0xpayer",
			Amount:             1_000_000,
			Status:             status,
			PaidAt:             paidAt,
			CreatedAt:          created,
		},
		RequesterWalletAddress: "0xrequester",
	}
}

func TestMergeHistoryOrdering(t *testing.T) {
	now := time.Now()
	older := makeRequest(models.RequestStatusPending, now.Add(-2*time.Hour), nil)
	newer := makeRequest(models.RequestStatusPending, now.Add(-1*time.Hour), nil)

	// Paid long ago but confirmed recently: ordered by paid_at, not created_at.
	paidAt := now.Add(-30 * time.Minute)
	paid := makeRequest(models.RequestStatusPaid, now.Add(-3*time.Hour), &paidAt)

	merged := MergeHistory(
		[]models.RequestWithRequester{older, paid},
		[]models.RequestWithRequester{newer},
	)

	if len(merged) != 3 {
		t.Fatalf("merged length = %d, want 3", len(merged))
	}
	wantOrder := []uuid.UUID{paid.ID, newer.ID, older.ID}
	for i, want := range wantOrder {
		if merged[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, merged[i].ID, want)
		}
	}
}

func TestMergeHistoryDirections(t *testing.T) {
	sent := makeRequest(models.RequestStatusPending, time.Now(), nil)
	received := makeRequest(models.RequestStatusPending, time.Now().Add(-time.Minute), nil)

	merged := MergeHistory(
		[]models.RequestWithRequester{sent},
		[]models.RequestWithRequester{received},
	)

	byID := map[uuid.UUID]string{}
	for _, e := range merged {
		byID[e.ID] = e.Direction
	}
	if byID[sent.ID] != models.DirectionSent {
		t.Errorf("sent request tagged %q", byID[sent.ID])
	}
	if byID[received.ID] != models.DirectionReceived {
		t.Errorf("received request tagged %q", byID[received.ID])
	}
}

func TestMergeHistoryDeduplicates(t *testing.T) {
	// Self-request: the same wallet is requester and payer, so the request
	// comes back in both the sent and incoming lists.
	self := makeRequest(models.RequestStatusPending, time.Now(), nil)

	merged := MergeHistory(
		[]models.RequestWithRequester{self},
		[]models.RequestWithRequester{self},
	)

	if len(merged) != 1 {
		t.Fatalf("merged length = %d, want 1", len(merged))
	}
	if merged[0].Direction != models.DirectionSent {
		t.Errorf("self-request tagged %q, want %q", merged[0].Direction, models.DirectionSent)
	}
}

func TestMergeHistoryEmpty(t *testing.T) {
	if got := MergeHistory(nil, nil); len(got) != 0 {
		t.Errorf("merge of empty inputs returned %d entries", len(got))
	}
}

func TestFilterHistory(t *testing.T) {
	contactEntry := models.HistoryEntry{
		RequestWithRequester: makeRequest(models.RequestStatusPending, time.Now(), nil),
		Direction:            models.DirectionSent,
	}
	contactEntry.PayerWalletAddress = "0xaaa"

	externalEntry := models.HistoryEntry{
		RequestWithRequester: makeRequest(models.RequestStatusPending, time.Now(), nil),
		Direction:            models.DirectionReceived,
	}
	externalEntry.RequesterWalletAddress = "0xbbb"

	entries := []models.HistoryEntry{contactEntry, externalEntry}
	contacts := map[string]bool{"0xaaa": true}

	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{"all", models.HistoryFilterAll, 2},
		{"empty filter acts as all", "", 2},
		{"contacts only", models.HistoryFilterContacts, 1},
		{"external only", models.HistoryFilterExternal, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterHistory(entries, tt.filter, contacts)
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}

	only := FilterHistory(entries, models.HistoryFilterContacts, contacts)
	if len(only) == 1 && only[0].ID != contactEntry.ID {
		t.Error("contacts filter kept the wrong entry")
	}
	only = FilterHistory(entries, models.HistoryFilterExternal, contacts)
	if len(only) == 1 && only[0].ID != externalEntry.ID {
		t.Error("external filter kept the wrong entry")
	}
}
