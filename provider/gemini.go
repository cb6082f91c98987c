package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cort-sh/cort/cort"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient talks to Google's Gemini generateContent REST API.
type GeminiClient struct {
	model      string
	apiKey     string
	apiBase    string
	httpClient *http.Client
	onChunk    StreamFunc
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newGeminiClient(opts Options) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, cort.NewConfigError("Gemini backend requires an API key (GOOGLE_API_KEY)")
	}

	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}

	apiBase := opts.APIBase
	if apiBase == "" {
		apiBase = geminiEndpoint
	}

	return &GeminiClient{
		model:      model,
		apiKey:     opts.APIKey,
		apiBase:    apiBase,
		httpClient: sharedHTTPClient,
		onChunk:    opts.OnChunk,
	}, nil
}

// Name identifies the backend in logs and sentinel error text.
func (c *GeminiClient) Name() string {
	return "Gemini"
}

// Model returns the model identifier requests are issued against.
func (c *GeminiClient) Model() string {
	return c.model
}

// Call sends one generateContent request. Gemini's API has no assistant or
// system roles: assistant turns map to "model" and system turns are prefixed
// into user turns. The full response text is delivered to the OnChunk
// callback in one piece.
func (c *GeminiClient) Call(ctx context.Context, messages []cort.Message, temperature float64, stream bool) (string, error) {
	payload := geminiRequest{
		Contents: convertGeminiContents(messages),
		GenerationConfig: geminiGenConfig{
			Temperature:     temperature,
			MaxOutputTokens: 8192,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", cort.WrapCallError("Gemini", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.apiBase, "/"), c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", cort.WrapCallError("Gemini", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", cort.WrapCallError("Gemini", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", cort.WrapCallError("Gemini", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", cort.NewCallError("Gemini", resp.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", cort.WrapCallError("Gemini", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", cort.WrapCallError("Gemini", errors.New(parsed.Error.Message))
	}
	if len(parsed.Candidates) == 0 {
		return "", cort.WrapCallError("Gemini", errors.New("no candidates returned"))
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	result := text.String()
	if stream && c.onChunk != nil && result != "" {
		c.onChunk(result)
	}
	return result, nil
}

func convertGeminiContents(messages []cort.Message) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case cort.RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		case cort.RoleSystem:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: "System: " + m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	return contents
}
