// Package cort provides a recursive-thinking chat engine for Go.
//
// CoRT (Chain of Recursive Thoughts) wraps any chat-completion backend and
// makes it argue with itself: for each user turn it generates an initial
// answer, then runs several rounds in which competing alternative answers are
// generated and the model itself judges which one is best. The winner of the
// final round is returned together with a full trace of every candidate
// considered.
//
// # Basic Usage
//
// Create a session around a Client and run turns against it:
//
//	client, err := provider.New(provider.Options{
//	    Kind:   "openai",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session := cort.NewSession(client, cort.Config{Alternatives: 3})
//	defer session.Shutdown()
//
//	result := session.ThinkAndRespond(ctx, "Explain recursion")
//	fmt.Println(result.Response)
//
// # Thinking Rounds
//
// The number of refinement rounds is decided per turn by the model itself:
// the session issues a low-temperature meta-query asking how many rounds
// (1-5) the prompt warrants, and falls back to 3 when the reply contains no
// usable number.
//
// # Candidate Trace
//
// Every candidate produced during a turn is kept in TurnResult.ThinkingHistory,
// tagged with its round, whether it won, and the model's one-sentence
// rationale when it did. The trace is append-only: superseded candidates stay
// in it as historical record.
//
// # Error Handling
//
// A failed backend call is not an error to the thinking loop. The failure is
// converted into a fixed sentinel string at the collaborator boundary and
// flows through generation and evaluation as ordinary (if degraded) content.
// Backend adapters themselves return *CallError so callers outside the loop
// can inspect status codes with errors.As().
//
// # Supported Backends
//
// The provider package ships adapters for OpenAI, Anthropic (Claude),
// DeepSeek, Google Gemini, local LM Studio endpoints, and OpenRouter. Any
// OpenAI-compatible endpoint works through the OpenAI adapter's APIBase
// option.
package cort
