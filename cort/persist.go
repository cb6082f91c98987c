package cort

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	timestampLayout = "20060102_150405"

	// markdownSlugLimit bounds the sanitized user-input prefix used in
	// exported markdown filenames.
	markdownSlugLimit = 30
)

// conversationDocument is the flat-file persistence format: the rolling
// conversation, optionally the full session log, and a write timestamp.
type conversationDocument struct {
	Conversation    []Message   `json:"conversation"`
	FullThinkingLog []LogRecord `json:"full_thinking_log,omitempty"`
	Timestamp       string      `json:"timestamp"`
}

// conversationSchemaJSON is the JSON Schema saved conversation documents are
// validated against before a session accepts them.
const conversationSchemaJSON = `{
  "type": "object",
  "properties": {
    "conversation": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "role": {"type": "string", "enum": ["user", "assistant", "system"]},
          "content": {"type": "string"}
        },
        "required": ["role", "content"]
      }
    },
    "full_thinking_log": {"type": "array"},
    "timestamp": {"type": "string"}
  },
  "required": ["conversation", "timestamp"]
}`

// SaveConversation writes the rolling conversation to a JSON file. An empty
// path derives a timestamped filename in the working directory. Returns the
// path written.
func (s *Session) SaveConversation(path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("chat_history_%s.json", time.Now().Format(timestampLayout))
	}

	doc := conversationDocument{
		Conversation: s.History(),
		Timestamp:    time.Now().Format(time.RFC3339),
	}
	if err := writeJSONAtomic(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

// SaveFullLog writes the conversation plus the complete thinking log of every
// turn in this session. An empty path derives a timestamped filename.
func (s *Session) SaveFullLog(path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("full_thinking_log_%s.json", time.Now().Format(timestampLayout))
	}

	doc := conversationDocument{
		Conversation:    s.History(),
		FullThinkingLog: s.Log(),
		Timestamp:       time.Now().Format(time.RFC3339),
	}
	if err := writeJSONAtomic(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

// LoadConversation restores the rolling conversation from a file previously
// written by SaveConversation or SaveFullLog. The document is validated
// against the conversation schema before the session accepts it.
func (s *Session) LoadConversation(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read conversation file: %w", err)
	}

	if err := validateConversationJSON(data); err != nil {
		return err
	}

	var doc conversationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse conversation file: %w", err)
	}

	s.ReplaceHistory(doc.Conversation)
	return nil
}

// validateConversationJSON checks a document against the conversation schema.
func validateConversationJSON(data []byte) error {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(conversationSchemaJSON), &schema); err != nil {
		return fmt.Errorf("parse conversation schema: %w", err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve conversation schema: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse conversation file: %w", err)
	}

	if err := resolved.Validate(doc); err != nil {
		return fmt.Errorf("conversation file failed schema validation: %w", err)
	}
	return nil
}

// ExportMarkdown writes one turn's result as a markdown file under dir,
// named from a sanitized slice of the user input plus a timestamp. Returns
// the path written.
func ExportMarkdown(dir string, userInput string, result *TurnResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create responses directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.md", sanitizeSlug(userInput), time.Now().Format(timestampLayout))
	path := filepath.Join(dir, filename)

	var md strings.Builder
	fmt.Fprintf(&md, "# Response to: %s\n\n", userInput)
	fmt.Fprintf(&md, "## Final Response\n%s\n\n", result.Response)
	md.WriteString("## Thinking Process\n\n")
	fmt.Fprintf(&md, "**Number of thinking rounds:** %d\n\n", result.ThinkingRounds)

	for _, candidate := range result.ThinkingHistory {
		status := "ALTERNATIVE"
		if candidate.Selected {
			status = "SELECTED"
		}
		fmt.Fprintf(&md, "### Round %d - %s\n\n", candidate.Round, status)
		fmt.Fprintf(&md, "%s\n\n", candidate.Response)
		if candidate.Selected && candidate.Explanation != "" {
			fmt.Fprintf(&md, "**Reason for selection:** %s\n\n", candidate.Explanation)
		}
		md.WriteString("---\n\n")
	}

	if err := writeFileAtomic(path, []byte(md.String())); err != nil {
		return "", err
	}
	return path, nil
}

// sanitizeSlug maps non-alphanumeric runes to underscores, truncates to
// markdownSlugLimit characters, and collapses spaces to underscores, matching
// the exported-filename contract.
func sanitizeSlug(input string) string {
	runes := make([]rune, 0, len(input))
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			runes = append(runes, r)
		} else {
			runes = append(runes, '_')
		}
	}

	if len(runes) > markdownSlugLimit {
		runes = runes[:markdownSlugLimit]
	}
	slug := string(runes)
	slug = strings.TrimSpace(slug)
	slug = strings.ReplaceAll(slug, " ", "_")
	if slug == "" {
		slug = "response"
	}
	return slug
}

func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes via a temp file in the target directory plus rename,
// so a crash mid-write never leaves a truncated document behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cort-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
