package cort

import (
	"context"
	"testing"
)

func TestExtractRoundCount(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"Bare number", "3", 3},
		{"Number in prose", "I think 4 rounds would be optimal.", 4},
		{"First run wins", "1-5", 1},
		{"Leading noise", "Rounds: 2", 2},
		{"No digits", "several rounds should do", 3},
		{"Empty reply", "", 3},
		{"Zero clamps up", "0", 1},
		{"Above range clamps down", "7", 5},
		{"Multi-digit run clamps down", "42", 5},
		{"Digit after decimal point stops the run", "0.5", 1},
		{"Whitespace and newlines", "\n  5  \n", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractRoundCount(tt.reply); got != tt.want {
				t.Errorf("extractRoundCount(%q) = %d, want %d", tt.reply, got, tt.want)
			}
		})
	}
}

func TestClampRounds(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{3, 3},
		{5, 5},
		{6, 5},
		{100, 5},
	}

	for _, tt := range tests {
		if got := clampRounds(tt.in); got != tt.want {
			t.Errorf("clampRounds(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPlanRoundsUsesModelEstimate(t *testing.T) {
	client := &stubClient{replies: []string{"4"}}
	session := NewSession(client, Config{})

	if got := session.planRounds(context.Background(), "a hard question"); got != 4 {
		t.Errorf("planRounds() = %d, want 4", got)
	}
	if client.callCount != 1 {
		t.Errorf("expected 1 model call, got %d", client.callCount)
	}
	if client.lastTemperature != planTemperature {
		t.Errorf("expected temperature %v, got %v", planTemperature, client.lastTemperature)
	}
}

func TestPlanRoundsFallsBackOnFailure(t *testing.T) {
	// The sentinel error text carries no digits, so the default applies.
	client := &stubClient{failAll: true}
	session := NewSession(client, Config{})

	if got := session.planRounds(context.Background(), "anything"); got != defaultThinkingRounds {
		t.Errorf("planRounds() = %d, want %d", got, defaultThinkingRounds)
	}
}

func TestPlanRoundsAlwaysInRange(t *testing.T) {
	replies := []string{"0", "-2", "9", "banana", "1 or maybe 5", "3.7"}
	for _, reply := range replies {
		client := &stubClient{replies: []string{reply}}
		session := NewSession(client, Config{})
		got := session.planRounds(context.Background(), "prompt")
		if got < minThinkingRounds || got > maxThinkingRounds {
			t.Errorf("planRounds with reply %q = %d, outside [%d,%d]",
				reply, got, minThinkingRounds, maxThinkingRounds)
		}
	}
}
