package cort

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// stubClient scripts backend replies in call order. When fn is set it takes
// precedence; failAll makes every call fail.
type stubClient struct {
	name    string
	replies []string
	next    int
	failAll bool
	fn      func(call int, messages []Message) (string, error)

	callCount       int
	lastTemperature float64
	lastMessages    []Message
}

func (c *stubClient) Name() string {
	if c.name == "" {
		return "Stub"
	}
	return c.name
}

func (c *stubClient) Call(ctx context.Context, messages []Message, temperature float64, stream bool) (string, error) {
	c.callCount++
	c.lastTemperature = temperature
	c.lastMessages = append([]Message(nil), messages...)

	if c.failAll {
		return "", NewCallError(c.Name(), 500, "backend unavailable")
	}
	if c.fn != nil {
		return c.fn(c.callCount, messages)
	}
	if c.next < len(c.replies) {
		reply := c.replies[c.next]
		c.next++
		return reply, nil
	}
	return "", errors.New("stub: no scripted reply")
}

func TestThinkAndRespondSelectsAlternative(t *testing.T) {
	// One round, two alternatives, evaluator picks alternative 2.
	client := &stubClient{replies: []string{
		"1",                // round planning
		"initial answer",   // round 0
		"alt one",          // alternative 1
		"alt two",          // alternative 2
		"2\nmore concise",  // evaluation
	}}
	session := NewSession(client, Config{Alternatives: 2})

	result := session.ThinkAndRespond(context.Background(), "Explain recursion")

	if result.Response != "alt two" {
		t.Errorf("final response = %q, want %q", result.Response, "alt two")
	}
	if result.ThinkingRounds != 1 {
		t.Errorf("thinking rounds = %d, want 1", result.ThinkingRounds)
	}
	if len(result.ThinkingHistory) != 3 {
		t.Fatalf("trace length = %d, want 3", len(result.ThinkingHistory))
	}

	round0 := result.ThinkingHistory[0]
	if round0.Round != 0 || !round0.Selected || round0.Response != "initial answer" {
		t.Errorf("round-0 candidate wrong: %+v", round0)
	}

	loser := result.ThinkingHistory[1]
	if loser.Selected {
		t.Errorf("alternative 1 should not be selected: %+v", loser)
	}

	winner := result.ThinkingHistory[2]
	if !winner.Selected || winner.Round != 1 || winner.Alternative != 2 {
		t.Errorf("alternative 2 should be the round-1 winner: %+v", winner)
	}
	if winner.Explanation != "more concise" {
		t.Errorf("winner rationale = %q, want %q", winner.Explanation, "more concise")
	}

	if got := len(session.History()); got != 2 {
		t.Errorf("conversation grew by %d messages, want 2", got)
	}
	if got := session.History()[0]; got.Role != RoleUser || got.Content != "Explain recursion" {
		t.Errorf("first history message wrong: %+v", got)
	}
	if got := session.History()[1]; got.Role != RoleAssistant || got.Content != "alt two" {
		t.Errorf("second history message wrong: %+v", got)
	}

	// planning + initial + 2 alternatives + evaluation
	if result.Stats.ModelCalls != 5 {
		t.Errorf("model calls = %d, want 5", result.Stats.ModelCalls)
	}

	log := session.Log()
	if len(log) != 1 {
		t.Fatalf("session log length = %d, want 1", len(log))
	}
	if log[0].FinalResponse != "alt two" || log[0].ID == "" || log[0].Timestamp.IsZero() {
		t.Errorf("log record wrong: %+v", log[0])
	}
}

func TestThinkAndRespondKeepsCurrent(t *testing.T) {
	client := &stubClient{replies: []string{
		"1",
		"initial answer",
		"an alternative",
		"current\nstill the strongest answer",
	}}
	session := NewSession(client, Config{Alternatives: 1})

	result := session.ThinkAndRespond(context.Background(), "prompt")

	if result.Response != "initial answer" {
		t.Errorf("final response = %q, want the kept initial answer", result.Response)
	}

	// The rationale lands on the most recently selected candidate carrying
	// the current best text: the round-0 entry.
	round0 := result.ThinkingHistory[0]
	if !round0.Selected || round0.Explanation != "still the strongest answer" {
		t.Errorf("round-0 candidate should carry the rationale: %+v", round0)
	}
	if result.ThinkingHistory[1].Selected {
		t.Errorf("rejected alternative must stay unselected")
	}
}

func TestTraceHasOneWinnerPerDecidedRound(t *testing.T) {
	client := &stubClient{replies: []string{
		"2",
		"initial",
		"r1 alt1", "r1 alt2",
		"1\nfresher angle", // round 1 picks alternative 1
		"r2 alt1", "r2 alt2",
		"current\nheld up", // round 2 keeps it
	}}
	session := NewSession(client, Config{Alternatives: 2})

	result := session.ThinkAndRespond(context.Background(), "prompt")

	if result.Response != "r1 alt1" {
		t.Fatalf("final response = %q, want %q", result.Response, "r1 alt1")
	}

	selectedPerRound := map[int]int{}
	for _, c := range result.ThinkingHistory {
		if c.Selected {
			selectedPerRound[c.Round]++
		}
	}
	if selectedPerRound[0] != 1 {
		t.Errorf("round 0 selected count = %d, want 1", selectedPerRound[0])
	}
	if selectedPerRound[1] != 1 {
		t.Errorf("round 1 selected count = %d, want 1", selectedPerRound[1])
	}
	if selectedPerRound[2] != 0 {
		t.Errorf("round 2 selected count = %d, want 0 (current kept)", selectedPerRound[2])
	}

	// The kept-current rationale attaches to the round-1 winner, the most
	// recently selected candidate with the current best text.
	for _, c := range result.ThinkingHistory {
		if c.Round == 1 && c.Selected && c.Explanation != "held up" {
			t.Errorf("round-1 winner should carry the final rationale, got %q", c.Explanation)
		}
	}
}

func TestAlternativesAlwaysFillEverySlot(t *testing.T) {
	client := &stubClient{failAll: true}
	session := NewSession(client, Config{Alternatives: 2})

	alternatives := session.generateAlternatives(context.Background(), "best", "prompt", 2)
	if len(alternatives) != 2 {
		t.Fatalf("got %d alternatives, want 2", len(alternatives))
	}
	for i, alt := range alternatives {
		if alt != "Error: Could not get response from Stub API" {
			t.Errorf("alternative %d = %q, want the sentinel error text", i, alt)
		}
	}
}

func TestAlternativeTemperatureRisesLinearly(t *testing.T) {
	var temps []float64
	client := &stubClient{fn: func(call int, messages []Message) (string, error) {
		return fmt.Sprintf("alt %d", call), nil
	}}
	session := NewSession(client, Config{})

	// Wrap to record temperatures via the stub's lastTemperature per call.
	for i := 0; i < 3; i++ {
		session.generateAlternatives(context.Background(), "best", "prompt", 1)
		temps = append(temps, client.lastTemperature)
	}
	for _, temp := range temps {
		if temp != baseAlternativeTemperature {
			t.Errorf("single-alternative temperature = %v, want %v", temp, baseAlternativeTemperature)
		}
	}

	client.callCount = 0
	session.generateAlternatives(context.Background(), "best", "prompt", 3)
	if client.lastTemperature != baseAlternativeTemperature+2*alternativeTemperatureStep {
		t.Errorf("third alternative temperature = %v, want %v",
			client.lastTemperature, baseAlternativeTemperature+2*alternativeTemperatureStep)
	}
}

func TestAlternativesDoNotSeeEachOther(t *testing.T) {
	client := &stubClient{fn: func(call int, messages []Message) (string, error) {
		// Each call must contain exactly one instruction message: the
		// rolling history is empty and alternatives are independent.
		if len(messages) != 1 {
			return "", fmt.Errorf("call %d saw %d messages", call, len(messages))
		}
		if strings.Contains(messages[0].Content, "previous alternative") {
			return "", errors.New("alternative leaked into a sibling call")
		}
		return fmt.Sprintf("previous alternative %d", call), nil
	}}
	session := NewSession(client, Config{})

	alternatives := session.generateAlternatives(context.Background(), "best", "prompt", 3)
	for i, alt := range alternatives {
		if strings.HasPrefix(alt, "Error:") {
			t.Errorf("alternative %d failed: %q", i, alt)
		}
	}
}

func TestWholeTurnSurvivesBackendOutage(t *testing.T) {
	client := &stubClient{failAll: true}
	session := NewSession(client, Config{Alternatives: 2})

	result := session.ThinkAndRespond(context.Background(), "prompt")

	sentinel := "Error: Could not get response from Stub API"
	if result.Response != sentinel {
		t.Errorf("final response = %q, want the sentinel", result.Response)
	}
	// Plan fallback is 3 rounds; each contributes 2 candidates on top of
	// the round-0 answer.
	if len(result.ThinkingHistory) != 1+3*2 {
		t.Errorf("trace length = %d, want 7", len(result.ThinkingHistory))
	}
	// The degraded turn still commits: memory grows by the usual pair.
	if got := len(session.History()); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}

func TestConversationMemoryEvictsOldestFirst(t *testing.T) {
	// Each turn issues exactly 4 calls: plan, initial, one alternative, eval.
	turn := 0
	client := &stubClient{fn: func(call int, messages []Message) (string, error) {
		switch (call - 1) % 4 {
		case 0:
			return "1", nil
		case 1:
			return fmt.Sprintf("answer %d", turn), nil
		case 2:
			return "alternative", nil
		default:
			return "current\nkeep it", nil
		}
	}}
	session := NewSession(client, Config{Alternatives: 1})

	for turn = 1; turn <= 8; turn++ {
		session.ThinkAndRespond(context.Background(), fmt.Sprintf("question %d", turn))
	}

	history := session.History()
	if len(history) != 10 {
		t.Fatalf("history length = %d, want 10", len(history))
	}
	// 8 turns produced 16 messages; the oldest 6 are gone, so the window
	// starts at turn 4's user message.
	if history[0].Role != RoleUser || history[0].Content != "question 4" {
		t.Errorf("oldest retained message = %+v, want user question 4", history[0])
	}
	if history[9].Role != RoleAssistant || history[9].Content != "answer 8" {
		t.Errorf("newest retained message = %+v, want assistant answer 8", history[9])
	}
}

func TestReplaceHistoryKeepsMostRecent(t *testing.T) {
	session := NewSession(&stubClient{}, Config{})

	messages := make([]Message, 0, 14)
	for i := 0; i < 7; i++ {
		messages = append(messages,
			Message{Role: RoleUser, Content: fmt.Sprintf("u%d", i)},
			Message{Role: RoleAssistant, Content: fmt.Sprintf("a%d", i)},
		)
	}
	session.ReplaceHistory(messages)

	history := session.History()
	if len(history) != 10 {
		t.Fatalf("history length = %d, want 10", len(history))
	}
	if history[0].Content != "u2" {
		t.Errorf("oldest retained = %q, want u2", history[0].Content)
	}
}

func TestDigestStability(t *testing.T) {
	if digest("same text") != digest("same text") {
		t.Error("equal text must produce equal digests")
	}
	if digest("one") == digest("two") {
		t.Error("distinct text should produce distinct digests")
	}
	if len(digest("x")) != 16 {
		t.Errorf("digest length = %d, want 16 hex chars", len(digest("x")))
	}
}
