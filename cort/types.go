package cort

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Message roles. Order of messages in a conversation is chronological and
// semantically significant.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Candidate is one generated response tracked in a turn's thinking trace.
// Alternative is the 1-based position within its round; it is 0 for the
// round-0 initial answer.
type Candidate struct {
	Round       int    `json:"round"`
	Response    string `json:"response"`
	Selected    bool   `json:"selected"`
	Alternative int    `json:"alternative_number,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Digest      string `json:"digest"`
}

// TurnStats summarizes the model traffic of one completed turn. Token counts
// are local estimates, not provider-reported usage.
type TurnStats struct {
	ModelCalls      int `json:"model_calls"`
	EstimatedTokens int `json:"estimated_tokens"`
}

// TurnResult is what a completed turn returns to the caller: the final
// answer, how many refinement rounds ran, and the full candidate trace.
type TurnResult struct {
	Response        string      `json:"response"`
	ThinkingRounds  int         `json:"thinking_rounds"`
	ThinkingHistory []Candidate `json:"thinking_history"`
	Stats           TurnStats   `json:"stats"`
}

// LogRecord is one append-only session-log entry, written at the end of a
// completed turn and persisted only on explicit save.
type LogRecord struct {
	ID              string      `json:"id"`
	Timestamp       time.Time   `json:"timestamp"`
	UserInput       string      `json:"user_input"`
	FinalResponse   string      `json:"final_response"`
	ThinkingRounds  int         `json:"thinking_rounds"`
	ThinkingHistory []Candidate `json:"thinking_history"`
}

// Config configures a Session.
type Config struct {
	// Alternatives is the number of competing answers generated per round
	// (default 3).
	Alternatives int

	// Observability configures tracing and debug logging.
	Observability *ObservabilityConfig
}

// digest fingerprints candidate text so duplicates across rounds are
// recognizable in logs and exports. Selection itself matches on the literal
// text, never on the digest.
func digest(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}
