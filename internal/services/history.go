package services

import (
	"sort"

	"github.com/splitpay/backend/internal/models"
)

// MergeHistory combines the caller's sent and incoming request lists into a
// single direction-tagged history. A request where the caller is both
// requester and payer shows up in both inputs; it is kept once, tagged as
// sent. The result is ordered by paid_at (when paid) else created_at,
// newest first.
func MergeHistory(sent, incoming []models.RequestWithRequester) []models.HistoryEntry {
	merged := make([]models.HistoryEntry, 0, len(sent)+len(incoming))
	seen := make(map[string]bool, len(sent)+len(incoming))

	for _, r := range sent {
		if seen[r.ID.String()] {
			continue
		}
		seen[r.ID.String()] = true
		merged = append(merged, models.HistoryEntry{RequestWithRequester: r, Direction: models.DirectionSent})
	}
	for _, r := range incoming {
		if seen[r.ID.String()] {
			continue
		}
		seen[r.ID.String()] = true
		merged = append(merged, models.HistoryEntry{RequestWithRequester: r, Direction: models.DirectionReceived})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SortTime().After(merged[j].SortTime())
	})
	return merged
}

// Counterparty returns the other wallet of a history entry relative to its
// direction tag.
func Counterparty(e models.HistoryEntry) string {
	if e.Direction == models.DirectionSent {
		return e.PayerWalletAddress
	}
	return e.RequesterWalletAddress
}

// FilterHistory applies the profile's stored history filter. contacts holds
// the caller's saved contact addresses, lowercase.
func FilterHistory(entries []models.HistoryEntry, filter string, contacts map[string]bool) []models.HistoryEntry {
	if filter == models.HistoryFilterAll || filter == "" {
		return entries
	}
	out := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		isContact := contacts[Counterparty(e)]
		switch filter {
		case models.HistoryFilterContacts:
			if isContact {
				out = append(out, e)
			}
		case models.HistoryFilterExternal:
			if !isContact {
				out = append(out, e)
			}
		}
	}
	return out
}
