package models

import (
	"testing"
	"time"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{RequestStatusPending, RequestStatusPaid, true},
		{RequestStatusPending, RequestStatusCancelled, true},
		{RequestStatusPending, RequestStatusRejected, true},
		{RequestStatusPending, RequestStatusExpired, true},

		// Terminal states never revert
		{RequestStatusPaid, RequestStatusPending, false},
		{RequestStatusCancelled, RequestStatusPending, false},
		{RequestStatusRejected, RequestStatusPending, false},
		{RequestStatusExpired, RequestStatusPending, false},

		// No lateral moves between terminal states
		{RequestStatusPaid, RequestStatusCancelled, false},
		{RequestStatusCancelled, RequestStatusPaid, false},
		{RequestStatusRejected, RequestStatusExpired, false},
		{RequestStatusExpired, RequestStatusPaid, false},

		// Unknown statuses
		{"nonexistent", RequestStatusPaid, false},
		{RequestStatusPending, "nonexistent", false},
		{RequestStatusPending, RequestStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		RequestStatusPending, RequestStatusPaid, RequestStatusCancelled,
		RequestStatusRejected, RequestStatusExpired,
	}

	for _, status := range allStatuses {
		if _, ok := ValidStatusTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidStatusTransitions map", status)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := []string{RequestStatusPaid, RequestStatusCancelled, RequestStatusRejected, RequestStatusExpired}
	for _, status := range terminal {
		if !IsTerminalStatus(status) {
			t.Errorf("IsTerminalStatus(%q) = false, want true", status)
		}
		transitions := ValidStatusTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
	if IsTerminalStatus(RequestStatusPending) {
		t.Error("pending must not be terminal")
	}
	if IsTerminalStatus("nonexistent") {
		t.Error("unknown status must not report terminal")
	}
}

func TestSortTime(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	paid := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	r := PaymentRequest{Status: RequestStatusPending, CreatedAt: created}
	if got := r.SortTime(); !got.Equal(created) {
		t.Errorf("pending request should sort by created_at, got %v", got)
	}

	r.Status = RequestStatusPaid
	r.PaidAt = &paid
	if got := r.SortTime(); !got.Equal(paid) {
		t.Errorf("paid request should sort by paid_at, got %v", got)
	}

	// Paid status with missing paid_at falls back to created_at.
	r.PaidAt = nil
	if got := r.SortTime(); !got.Equal(created) {
		t.Errorf("paid request without paid_at should fall back to created_at, got %v", got)
	}
}
