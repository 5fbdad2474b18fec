package workspace

import (
	"testing"
	"time"
)

func TestSubscription_IsActive(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  *Subscription
		want bool
	}{
		{"nil subscription is permissive", nil, true},
		{"active status, no period end", &Subscription{Status: "active"}, true},
		{"trial status counts as active", &Subscription{Status: "trial"}, true},
		{"TRIAL is case-insensitive", &Subscription{Status: "TRIAL"}, true},
		{"canceled status is inactive", &Subscription{Status: "canceled"}, false},
		{"active but period already ended", &Subscription{Status: "active", CurrentPeriodEnd: &past}, false},
		{"active and period ends now is expired", &Subscription{Status: "active", CurrentPeriodEnd: &now}, false},
		{"active and period ends in the future", &Subscription{Status: "active", CurrentPeriodEnd: &future}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.IsActive(now); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPeriodStart(t *testing.T) {
	got := PeriodStart(time.Date(2026, 3, 17, 15, 30, 0, 0, time.UTC))
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("PeriodStart() = %v, want %v", got, want)
	}
}
