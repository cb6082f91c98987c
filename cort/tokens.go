package cort

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// estimateTokens counts tokens with the cl100k_base encoding. The counts feed
// observability and turn stats only; they are estimates, not billing truth.
// When the encoding cannot be loaded (e.g. offline) a chars/4 heuristic
// stands in so stats stay populated.
func estimateTokens(texts ...string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})

	total := 0
	for _, text := range texts {
		if encoder != nil {
			total += len(encoder.Encode(text, nil, nil))
		} else {
			total += len(text) / 4
		}
	}
	return total
}

func estimateMessageTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += estimateTokens(m.Content)
	}
	return total
}
