package provider

import (
	"bufio"
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

// ChatClient talks to any OpenAI-compatible chat-completions endpoint. It
// covers the OpenAI, DeepSeek, LM Studio, and OpenRouter backends, which
// differ only in base URL, credentials, and extra headers.
type ChatClient struct {
	name       string
	model      string
	apiBase    string
	apiKey     string
	headers    map[string]string
	maxTokens  int
	httpClient *http.Client
	onChunk    StreamFunc
}

type chatRequest struct {
	Model       string         `json:"model"`
	Messages    []cort.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
	Stream      bool           `json:"stream"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func newChatClient(name, model, defaultModel, apiBase, apiKey string, headers map[string]string, onChunk StreamFunc) *ChatClient {
	if model == "" {
		model = defaultModel
	}
	return &ChatClient{
		name:       name,
		model:      model,
		apiBase:    apiBase,
		apiKey:     apiKey,
		headers:    headers,
		maxTokens:  4096,
		httpClient: sharedHTTPClient,
		onChunk:    onChunk,
	}
}

// Name identifies the backend in logs and sentinel error text.
func (c *ChatClient) Name() string {
	return c.name
}

// Model returns the model identifier requests are issued against.
func (c *ChatClient) Model() string {
	return c.model
}

// Call sends one chat-completion request. With stream set, the SSE stream is
// drained chunk by chunk (each delta forwarded to the OnChunk callback when
// configured) and concatenated; the caller only ever sees the completed text.
func (c *ChatClient) Call(ctx context.Context, messages []cort.Message, temperature float64, stream bool) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      stream,
		MaxTokens:   c.maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", cort.WrapCallError(c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", cort.WrapCallError(c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", cort.WrapCallError(c.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		responseBody, _ := io.ReadAll(resp.Body)
		return "", cort.NewCallError(c.name, resp.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	if stream {
		return c.drainStream(resp.Body)
	}
	return c.parseResponse(resp.Body)
}

func (c *ChatClient) parseResponse(body io.Reader) (string, error) {
	responseBody, err := io.ReadAll(body)
	if err != nil {
		return "", cort.WrapCallError(c.name, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", cort.WrapCallError(c.name, err)
	}

	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", cort.WrapCallError(c.name, errors.New(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", cort.WrapCallError(c.name, errors.New("no choices returned"))
	}

	return parsed.Choices[0].Message.Content, nil
}

// drainStream consumes an SSE stream of chat deltas, forwarding each chunk
// and accumulating the full text in arrival order. Unparseable lines are
// skipped; "[DONE]" terminates the stream.
func (c *ChatClient) drainStream(body io.Reader) (string, error) {
	var full strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			full.WriteString(choice.Delta.Content)
			if c.onChunk != nil {
				c.onChunk(choice.Delta.Content)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", cort.WrapCallError(c.name, err)
	}
	return full.String(), nil
}

func (c *ChatClient) endpoint() string {
	base := strings.TrimSpace(c.apiBase)
	if strings.Contains(base, "/chat/completions") {
		return base
	}
	return strings.TrimRight(base, "/") + "/chat/completions"
}
