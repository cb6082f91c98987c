package cort

import (
	"fmt"
	"strings"
)

// buildPlanPrompt asks the model to estimate how many refinement rounds a
// prompt warrants.
func buildPlanPrompt(prompt string) string {
	return fmt.Sprintf(`Given this message: %q

How many rounds of iterative thinking (1-5) would be optimal to generate the best response?
Consider the complexity and nuance required.
Respond with just a number between 1 and 5.`, prompt)
}

// buildAlternativePrompt asks for a genuinely different take on the current
// best answer. Alternatives never see each other, only the current best.
func buildAlternativePrompt(prompt string, currentBest string) string {
	return fmt.Sprintf(`Original message: %s

Current response: %s

Generate an alternative response that might be better. Be creative and consider different approaches.
Alternative response:`, prompt, currentBest)
}

// buildEvalPrompt presents the current best and all alternatives, enumerated
// 1..N, and asks for a choice on the first line and a one-sentence rationale
// on the next.
func buildEvalPrompt(prompt string, currentBest string, alternatives []string) string {
	var enumerated strings.Builder
	for i, alt := range alternatives {
		fmt.Fprintf(&enumerated, "%d. %s\n", i+1, alt)
	}

	return fmt.Sprintf(`Original message: %s

Evaluate these responses and choose the best one:

Current best: %s

Alternatives:
%s
Which response best addresses the original message? Consider accuracy, clarity, and completeness.
First, respond with ONLY 'current' or a number (1-%d).
Then on a new line, explain your choice in one sentence.`,
		prompt, currentBest, strings.TrimRight(enumerated.String(), "\n"), len(alternatives))
}
