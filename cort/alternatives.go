package cort

import (
	"context"
	"fmt"
)

const (
	baseAlternativeTemperature = 0.7
	alternativeTemperatureStep = 0.1
)

// generateAlternatives produces exactly count competing answers to prompt.
// Each call sees the rolling conversation plus its own instruction; the
// alternatives are generated independently and cannot see each other, and
// currentBest is fixed input for the whole round. Temperature rises linearly
// so later alternatives are pushed to diverge more. A failed call fills its
// slot with the sentinel error text rather than shrinking the result.
func (s *Session) generateAlternatives(ctx context.Context, currentBest string, prompt string, count int) []string {
	alternatives := make([]string, 0, count)

	for i := 0; i < count; i++ {
		sctx := s.observer.StartSpan("turn.alternative", map[string]string{
			"index": fmt.Sprintf("%d", i+1),
			"count": fmt.Sprintf("%d", count),
		})

		temperature := baseAlternativeTemperature + float64(i)*alternativeTemperatureStep
		messages := append(s.contextMessages(), Message{
			Role:    RoleUser,
			Content: buildAlternativePrompt(prompt, currentBest),
		})

		alternatives = append(alternatives, s.callModel(ctx, messages, temperature, true))
		s.observer.EndSpan(sctx)
	}

	return alternatives
}
