package cort

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

const (
	evalTemperature = 0.2

	// noExplanation is the placeholder rationale when the evaluator's reply
	// carries no second line.
	noExplanation = "No explanation provided"
)

// evaluateResponses asks the model to judge the current best against the
// round's alternatives and returns the winning text with the model's
// rationale. The evaluation query sees only itself, not the rolling
// conversation.
func (s *Session) evaluateResponses(ctx context.Context, prompt string, currentBest string, alternatives []string) (string, string) {
	sctx := s.observer.StartSpan("turn.evaluate", map[string]string{
		"alternatives": fmt.Sprintf("%d", len(alternatives)),
	})
	defer s.observer.EndSpan(sctx)

	messages := []Message{{Role: RoleUser, Content: buildEvalPrompt(prompt, currentBest, alternatives)}}
	reply := s.callModel(ctx, messages, evalTemperature, true)

	return chooseWinner(reply, currentBest, alternatives)
}

// chooseWinner parses the evaluator's free-text reply. This is a best-effort
// natural-language parser, not a strict protocol: it commits to exactly two
// structural assumptions (the choice on the first non-empty line, the
// rationale on the lines after) and tolerates any amount of surrounding
// noise. It never fails: every ambiguous or out-of-range outcome falls back
// to the current best.
//
// Policy, in order:
//  1. Split into non-empty trimmed lines; no lines means keep current with
//     the placeholder rationale.
//  2. If the first line contains "current" (case-insensitive), keep current.
//     Otherwise the first decimal digit on that line, scanned left to right,
//     is the 1-based alternative index; no digit means keep current.
//  3. The rationale is all remaining lines joined with single spaces, or the
//     placeholder when there is only one line.
//  4. An index outside 1..len(alternatives) silently keeps current.
func chooseWinner(reply string, currentBest string, alternatives []string) (string, string) {
	lines := nonEmptyLines(reply)
	if len(lines) == 0 {
		return currentBest, noExplanation
	}

	rationale := noExplanation
	if len(lines) > 1 {
		rationale = strings.Join(lines[1:], " ")
	}

	firstLine := strings.ToLower(lines[0])
	if strings.Contains(firstLine, "current") {
		return currentBest, rationale
	}

	choice := -1
	for _, r := range firstLine {
		if unicode.IsDigit(r) {
			choice = int(r - '0')
			break
		}
	}
	if choice < 0 {
		return currentBest, rationale
	}

	index := choice - 1
	if index < 0 || index >= len(alternatives) {
		return currentBest, rationale
	}
	return alternatives[index], rationale
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
