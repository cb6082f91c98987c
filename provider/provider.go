// Package provider implements the chat-completion backends the cort engine
// can talk to. The set of backends is closed: one is selected at construction
// via New and used for the whole session.
package provider

import (
	"net/http"
	"time"

	"github.com/cort-sh/cort/cort"
)

// Backend kinds accepted by New.
const (
	KindOpenAI   = "openai"
	KindClaude   = "claude"
	KindDeepSeek = "deepseek"
	KindGemini   = "gemini"
	KindLocal    = "local"
)

// Default models per backend, matching each vendor's chat API. OpenRouter
// routes use the vendor-prefixed form.
const (
	defaultOpenAIModel   = "gpt-4o"
	defaultClaudeModel   = "claude-3-opus-20240229"
	defaultDeepSeekModel = "deepseek-chat"
	defaultGeminiModel   = "gemini-1.5-pro"
	defaultLocalModel    = "local-model"

	defaultLocalAPIBase = "http://localhost:1234/v1"

	openRouterEndpoint = "https://openrouter.ai/api/v1"
)

var openRouterDefaultModels = map[string]string{
	KindOpenAI:   "openai/gpt-4o",
	KindClaude:   "anthropic/claude-3-opus-20240229",
	KindDeepSeek: "deepseek/deepseek-chat",
	KindGemini:   "google/gemini-1.5-pro",
	KindLocal:    "openai/gpt-3.5-turbo",
}

// StreamFunc receives each text chunk as it arrives when a backend streams.
type StreamFunc func(chunk string)

// Options selects and configures a backend.
type Options struct {
	// Kind is one of the Kind* constants.
	Kind string

	// Model overrides the backend's default model.
	Model string

	// APIKey authenticates against the backend. The local backend needs
	// none unless routed through OpenRouter.
	APIKey string

	// APIBase overrides the endpoint for OpenAI-compatible backends
	// (used by the local LM Studio backend; default http://localhost:1234/v1).
	APIBase string

	// OpenRouter routes the request through OpenRouter's OpenAI-compatible
	// endpoint instead of the native API.
	OpenRouter bool

	// OnChunk, when set, receives streamed text incrementally. The Call
	// result is unaffected: it always resolves to the full drained text.
	OnChunk StreamFunc
}

// sharedHTTPClient pools connections across all HTTP-based backends.
var sharedHTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// New constructs the backend selected by opts. Unknown kinds and missing
// required credentials are configuration errors.
func New(opts Options) (cort.Client, error) {
	if opts.OpenRouter {
		return newOpenRouter(opts)
	}

	switch opts.Kind {
	case KindOpenAI:
		if opts.APIKey == "" {
			return nil, cort.NewConfigError("OpenAI backend requires an API key (OPENAI_API_KEY)")
		}
		return newChatClient("OpenAI", opts.Model, defaultOpenAIModel, "https://api.openai.com/v1", opts.APIKey, nil, opts.OnChunk), nil
	case KindDeepSeek:
		if opts.APIKey == "" {
			return nil, cort.NewConfigError("DeepSeek backend requires an API key (DEEPSEEK_API_KEY)")
		}
		return newChatClient("DeepSeek", opts.Model, defaultDeepSeekModel, "https://api.deepseek.com/v1", opts.APIKey, nil, opts.OnChunk), nil
	case KindLocal:
		apiBase := opts.APIBase
		if apiBase == "" {
			apiBase = defaultLocalAPIBase
		}
		return newChatClient("LM Studio", opts.Model, defaultLocalModel, apiBase, opts.APIKey, nil, opts.OnChunk), nil
	case KindClaude:
		return newClaudeClient(opts)
	case KindGemini:
		return newGeminiClient(opts)
	default:
		return nil, cort.NewConfigError("unknown provider %q", opts.Kind)
	}
}

// newOpenRouter routes any backend kind through OpenRouter's
// OpenAI-compatible endpoint with its attribution headers.
func newOpenRouter(opts Options) (cort.Client, error) {
	if opts.APIKey == "" {
		return nil, cort.NewConfigError("OpenRouter requires an API key (OPENROUTER_API_KEY)")
	}

	model := opts.Model
	if model == "" {
		model = openRouterDefaultModels[opts.Kind]
		if model == "" {
			return nil, cort.NewConfigError("unknown provider %q", opts.Kind)
		}
	}

	headers := map[string]string{
		"HTTP-Referer": "http://localhost:3000",
		"X-Title":      "Recursive Thinking Chat",
	}
	return newChatClient("OpenRouter", model, model, openRouterEndpoint, opts.APIKey, headers, opts.OnChunk), nil
}

// KeyEnvVar names the environment variable holding the credential for a
// backend selection; empty means no credential is required.
func KeyEnvVar(kind string, openRouter bool) string {
	if openRouter {
		return "OPENROUTER_API_KEY"
	}
	switch kind {
	case KindOpenAI:
		return "OPENAI_API_KEY"
	case KindClaude:
		return "ANTHROPIC_API_KEY"
	case KindDeepSeek:
		return "DEEPSEEK_API_KEY"
	case KindGemini:
		return "GOOGLE_API_KEY"
	case KindLocal:
		return ""
	default:
		return ""
	}
}
