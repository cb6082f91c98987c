package cort

import (
	"context"
	"fmt"
	"unicode"
)

const (
	minThinkingRounds     = 1
	maxThinkingRounds     = 5
	defaultThinkingRounds = 3

	planTemperature = 0.3
)

// planRounds asks the model how many refinement rounds the prompt deserves.
// The meta-query runs at low temperature for consistent estimates and sees
// only itself, not the rolling conversation. Whatever comes back is reduced
// to an integer in [1,5]; any failure means the default.
func (s *Session) planRounds(ctx context.Context, prompt string) int {
	sctx := s.observer.StartSpan("turn.plan_rounds", map[string]string{
		"prompt_length": fmt.Sprintf("%d", len(prompt)),
	})
	defer s.observer.EndSpan(sctx)

	messages := []Message{{Role: RoleUser, Content: buildPlanPrompt(prompt)}}
	reply := s.callModel(ctx, messages, planTemperature, true)

	rounds := extractRoundCount(reply)
	s.observer.Debug("planner", "planned %d thinking rounds", rounds)
	return rounds
}

// extractRoundCount takes the first run of decimal digits in the reply and
// clamps it into [1,5]. No digits at all means the default of 3. The clamp
// defends against the model answering 0, a negative, or something like 30.
func extractRoundCount(reply string) int {
	value := 0
	found := false
	for _, r := range reply {
		if unicode.IsDigit(r) {
			value = value*10 + int(r-'0')
			found = true
			if value > maxThinkingRounds {
				// Already past the cap, no need to keep accumulating.
				break
			}
			continue
		}
		if found {
			break
		}
	}

	if !found {
		return defaultThinkingRounds
	}
	return clampRounds(value)
}

func clampRounds(n int) int {
	if n < minThinkingRounds {
		return minThinkingRounds
	}
	if n > maxThinkingRounds {
		return maxThinkingRounds
	}
	return n
}
