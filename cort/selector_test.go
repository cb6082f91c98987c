package cort

import "testing"

func TestChooseWinner(t *testing.T) {
	current := "the current best"
	alternatives := []string{"alt one", "alt two", "alt three"}

	tests := []struct {
		name          string
		reply         string
		wantText      string
		wantRationale string
	}{
		{
			name:          "Picks alternative by number",
			reply:         "2\nBecause it's clearer.",
			wantText:      "alt two",
			wantRationale: "Because it's clearer.",
		},
		{
			name:          "Keeps current",
			reply:         "current\nThe original already covers the question.",
			wantText:      current,
			wantRationale: "The original already covers the question.",
		},
		{
			name:          "Current is case insensitive",
			reply:         "CURRENT\nreason",
			wantText:      current,
			wantRationale: "reason",
		},
		{
			name:          "Current embedded in prose",
			reply:         "I'd keep the current one.\nIt is more complete.",
			wantText:      current,
			wantRationale: "It is more complete.",
		},
		{
			name:          "Number embedded in prose",
			reply:         "Alternative 3 is best\nIt names the tradeoffs.",
			wantText:      "alt three",
			wantRationale: "It names the tradeoffs.",
		},
		{
			name:          "First digit wins over later ones",
			reply:         "1, though 2 was close\nshorter",
			wantText:      "alt one",
			wantRationale: "shorter",
		},
		{
			name:          "Out of range keeps current",
			reply:         "7\nI liked it",
			wantText:      current,
			wantRationale: "I liked it",
		},
		{
			name:          "Zero keeps current",
			reply:         "0\nnone improve on it",
			wantText:      current,
			wantRationale: "none improve on it",
		},
		{
			name:          "No digits and no current keeps current",
			reply:         "the second one\nfor tone",
			wantText:      current,
			wantRationale: "for tone",
		},
		{
			name:          "Single line gets placeholder rationale",
			reply:         "2",
			wantText:      "alt two",
			wantRationale: noExplanation,
		},
		{
			name:          "Empty reply keeps current with placeholder",
			reply:         "",
			wantText:      current,
			wantRationale: noExplanation,
		},
		{
			name:          "Whitespace-only reply keeps current",
			reply:         "\n   \n\t\n",
			wantText:      current,
			wantRationale: noExplanation,
		},
		{
			name:          "Multi-line rationale is joined with spaces",
			reply:         "1\nIt is tighter.\nAnd it answers the actual question.",
			wantText:      "alt one",
			wantRationale: "It is tighter. And it answers the actual question.",
		},
		{
			name:          "Blank lines inside the rationale are dropped",
			reply:         "current\n\nfirst point\n\nsecond point\n",
			wantText:      current,
			wantRationale: "first point second point",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotText, gotRationale := chooseWinner(tt.reply, current, alternatives)
			if gotText != tt.wantText {
				t.Errorf("winner = %q, want %q", gotText, tt.wantText)
			}
			if gotRationale != tt.wantRationale {
				t.Errorf("rationale = %q, want %q", gotRationale, tt.wantRationale)
			}
		})
	}
}

func TestChooseWinnerNeverPanicsOnEmptyAlternatives(t *testing.T) {
	text, rationale := chooseWinner("1\nbest", "current", nil)
	if text != "current" {
		t.Errorf("winner = %q, want current best when there are no alternatives", text)
	}
	if rationale != "best" {
		t.Errorf("rationale = %q, want %q", rationale, "best")
	}
}

func TestNonEmptyLines(t *testing.T) {
	got := nonEmptyLines("  a  \n\n\tb\n \nc")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func BenchmarkChooseWinner(b *testing.B) {
	alternatives := []string{"alpha", "beta", "gamma"}
	reply := "Alternative 2 reads better overall\nIt keeps the same facts in half the words.\nThe structure is also easier to scan."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chooseWinner(reply, "current", alternatives)
	}
}
