package llmcomplete

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

// CountTokens returns the token count of text with the cl100k_base encoding. It is an estimate for models with other tokenizers, which is all it's used for. If the
// encoder is unavailable, it falls back to len(text)/4.
func CountTokens(text string) int {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if codecErr != nil {
		fmt.Printf("WARNING: invalid encoder %v: %v\n", tokenizer.Cl100kBase, codecErr)
		return len(text) / 4
	}

	count, err := codec.Count(text)
	if err != nil {
		fmt.Printf("WARNING: could not count tokens for text. err= %v\n", err)
		return len(text) / 4
	}
	return count
}
