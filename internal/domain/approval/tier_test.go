package approval

import (
	"errors"
	"testing"
)

func TestNextTier(t *testing.T) {
	tests := []struct {
		name      string
		approvers Approvers
		current   Tier
		want      Tier
	}{
		{"start at first", Approvers{First: []string{"a"}}, TierNone, TierFirst},
		{"start skips empty first", Approvers{Second: []string{"b"}}, TierNone, TierSecond},
		{"first to second", Approvers{First: []string{"a"}, Second: []string{"b"}}, TierFirst, TierSecond},
		{"first skips empty second", Approvers{First: []string{"a"}, Third: []string{"c"}}, TierFirst, TierThird},
		{"first is last", Approvers{First: []string{"a"}}, TierFirst, TierNone},
		{"third is last", Approvers{First: []string{"a"}, Second: []string{"b"}, Third: []string{"c"}}, TierThird, TierNone},
		{"shared never counts", Approvers{First: []string{"a"}, Shared: []string{"s"}}, TierFirst, TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextTier(tt.approvers, tt.current); got != tt.want {
				t.Errorf("NextTier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextStage(t *testing.T) {
	a := Approvers{First: []string{"a"}, Third: []string{"c"}}
	if got := NextStage(a, TierFirst); got != StageTier3Pending {
		t.Errorf("NextStage() = %v, want %v", got, StageTier3Pending)
	}
	if got := NextStage(a, TierThird); got != StageFinalApproved {
		t.Errorf("NextStage() = %v, want %v", got, StageFinalApproved)
	}
}

func TestInitialStatus(t *testing.T) {
	got, err := InitialStatus(Approvers{Second: []string{"b"}})
	if err != nil {
		t.Fatalf("InitialStatus() error = %v", err)
	}
	if got != PendingStatus(TierSecond) {
		t.Errorf("InitialStatus() = %v, want TIER2_PENDING", got)
	}

	_, err = InitialStatus(Approvers{Shared: []string{"s"}})
	if !errors.Is(err, ErrNoApprovers) {
		t.Errorf("InitialStatus() error = %v, want ErrNoApprovers", err)
	}
}

func TestApprovers_TierOf(t *testing.T) {
	a := Approvers{
		First:  []string{"a", "x"},
		Second: []string{"x", "b"},
		Third:  []string{"c"},
		Shared: []string{"s"},
	}

	tests := []struct {
		identity string
		want     Tier
	}{
		{"a", TierFirst},
		{"x", TierFirst},
		{"b", TierSecond},
		{"c", TierThird},
		{"s", TierNone},
		{"nobody", TierNone},
	}
	for _, tt := range tests {
		if got := a.TierOf(tt.identity); got != tt.want {
			t.Errorf("TierOf(%q) = %v, want %v", tt.identity, got, tt.want)
		}
	}
}

