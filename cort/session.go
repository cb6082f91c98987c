package cort

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// historyLimit bounds the rolling conversation memory: the most recent
	// N messages are retained, oldest evicted first.
	historyLimit = 10

	defaultAlternatives = 3

	initialTemperature = 0.7
)

// Session runs recursive-thinking turns against one backend. It owns the
// rolling conversation history and the append-only session log; both live
// for the session lifetime and are mutated only at the end of a completed
// turn, never mid-round. Sessions share no state with each other, so
// separate instances may run in parallel without synchronization.
//
// Within a single turn every model call is issued strictly sequentially:
// alternative generation reads the current best as fixed input, and
// evaluation must see all alternatives completed before choosing.
type Session struct {
	id           string
	client       Client
	alternatives int
	observer     *Observer

	history []Message
	log     []LogRecord

	// per-turn counters, reset at the start of each turn
	turnCalls  int
	turnTokens int
}

// NewSession creates a Session around the given backend.
func NewSession(client Client, config Config) *Session {
	alternatives := config.Alternatives
	if alternatives <= 0 {
		alternatives = defaultAlternatives
	}

	var obs *Observer
	if config.Observability != nil {
		obs = NewObserver(*config.Observability)
	} else {
		obs = NewNoopObserver()
	}

	return &Session{
		id:           uuid.NewString(),
		client:       client,
		alternatives: alternatives,
		observer:     obs,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// ThinkAndRespond runs one full recursive-thinking turn: plan the round
// count, produce the initial answer, then for each round generate
// alternatives and let the model select a winner. The returned trace is
// append-only and never pruned; a new winner supersedes the old one without
// erasing it.
//
// Backend failures never abort the turn. They surface as sentinel text that
// competes like any other candidate, so a degraded answer is always returned.
func (s *Session) ThinkAndRespond(ctx context.Context, userInput string) *TurnResult {
	s.turnCalls = 0
	s.turnTokens = 0

	tctx := s.observer.StartTrace("cort.turn", map[string]string{
		"session":      s.id,
		"input_length": fmt.Sprintf("%d", len(userInput)),
	})
	defer s.observer.EndTrace(tctx)

	rounds := s.planRounds(ctx, userInput)

	sctx := s.observer.StartSpan("turn.initial_response", nil)
	messages := append(s.contextMessages(), Message{Role: RoleUser, Content: userInput})
	currentBest := s.callModel(ctx, messages, initialTemperature, true)
	s.observer.EndSpan(sctx)

	trace := []Candidate{{
		Round:    0,
		Response: currentBest,
		Selected: true,
		Digest:   digest(currentBest),
	}}

	for round := 1; round <= rounds; round++ {
		s.observer.Debug("session", "round %d/%d", round, rounds)

		alternatives := s.generateAlternatives(ctx, currentBest, userInput, s.alternatives)
		for i, alt := range alternatives {
			candidate := Candidate{
				Round:       round,
				Response:    alt,
				Alternative: i + 1,
				Digest:      digest(alt),
			}
			if prior, ok := findByDigest(trace, candidate.Digest); ok {
				s.observer.Event("turn.duplicate_candidate", map[string]string{
					"round":       fmt.Sprintf("%d", round),
					"prior_round": fmt.Sprintf("%d", prior),
					"digest":      candidate.Digest,
				})
			}
			trace = append(trace, candidate)
		}

		winner, rationale := s.evaluateResponses(ctx, userInput, currentBest, alternatives)

		if winner != currentBest {
			// The winner is matched by literal text, so a regenerated
			// duplicate marks every equal candidate in this round.
			for i := range trace {
				if trace[i].Round == round && trace[i].Response == winner {
					trace[i].Selected = true
					trace[i].Explanation = rationale
				}
			}
			currentBest = winner
			s.observer.Event("turn.alternative_selected", map[string]string{
				"round": fmt.Sprintf("%d", round),
			})
		} else {
			// Keep current: attach the rationale to the most recently
			// selected candidate carrying the current best text.
			for i := len(trace) - 1; i >= 0; i-- {
				if trace[i].Selected && trace[i].Response == currentBest {
					trace[i].Explanation = rationale
					break
				}
			}
			s.observer.Event("turn.current_kept", map[string]string{
				"round": fmt.Sprintf("%d", round),
			})
		}
	}

	// The turn is committed only here: memory and log are never touched
	// mid-round.
	s.history = append(s.history,
		Message{Role: RoleUser, Content: userInput},
		Message{Role: RoleAssistant, Content: currentBest},
	)
	if len(s.history) > historyLimit {
		s.history = append([]Message(nil), s.history[len(s.history)-historyLimit:]...)
	}

	s.log = append(s.log, LogRecord{
		ID:              uuid.NewString(),
		Timestamp:       time.Now(),
		UserInput:       userInput,
		FinalResponse:   currentBest,
		ThinkingRounds:  rounds,
		ThinkingHistory: trace,
	})

	return &TurnResult{
		Response:        currentBest,
		ThinkingRounds:  rounds,
		ThinkingHistory: trace,
		Stats: TurnStats{
			ModelCalls:      s.turnCalls,
			EstimatedTokens: s.turnTokens,
		},
	}
}

// callModel is the collaborator boundary. It issues exactly one attempt and
// converts any failure into a fixed human-readable sentinel string, so the
// thinking loop never distinguishes a failed call from a low-quality answer.
// A failed alternative can therefore still win evaluation; that is a known
// and accepted limitation.
func (s *Session) callModel(ctx context.Context, messages []Message, temperature float64, stream bool) string {
	s.turnCalls++
	start := time.Now()

	text, err := s.client.Call(ctx, messages, temperature, stream)
	duration := time.Since(start)

	tokens := estimateMessageTokens(messages) + estimateTokens(text)
	s.turnTokens += tokens
	s.observer.ModelCall(s.client.Name(), len(messages), tokens, duration, err)

	if err != nil {
		s.observer.Error("session", "model call failed: %v", err)
		return fmt.Sprintf("Error: Could not get response from %s API", s.client.Name())
	}
	return text
}

// contextMessages returns a copy of the rolling conversation so callers can
// append without mutating session memory.
func (s *Session) contextMessages() []Message {
	return append([]Message(nil), s.history...)
}

// History returns a copy of the rolling conversation memory.
func (s *Session) History() []Message {
	return s.contextMessages()
}

// Log returns a copy of the append-only session log.
func (s *Session) Log() []LogRecord {
	return append([]LogRecord(nil), s.log...)
}

// ReplaceHistory swaps in a previously saved conversation, keeping only the
// most recent messages if it exceeds the memory bound.
func (s *Session) ReplaceHistory(messages []Message) {
	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}
	s.history = append([]Message(nil), messages...)
}

// Observer returns the session's observer for external access to events.
func (s *Session) Observer() *Observer {
	return s.observer
}

// Shutdown flushes any pending observability data.
func (s *Session) Shutdown() {
	if s.observer != nil {
		s.observer.Shutdown()
	}
}

func findByDigest(trace []Candidate, digest string) (int, bool) {
	for _, c := range trace {
		if c.Digest == digest {
			return c.Round, true
		}
	}
	return 0, false
}
