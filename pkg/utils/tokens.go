package utils

import (
	"github.com/pkoukk/tiktoken-go"
)

// maxCompletionTokens is the provider-side cap on the completion budget.
const maxCompletionTokens = 8192

func NumTokens(text string) (int, error) {
	tkm, err := tiktoken.EncodingForModel("gpt-4-0613")
	if err != nil {
		return 0, err
	}

	return len(tkm.Encode(text, nil, nil)), nil
}

// TokenBudget derives the completion token budget from the prompt and the
// requested character count: prompt tokens plus two tokens per target
// character, clamped to the provider cap. Monotonic in length.
// When the tokenizer is unavailable the prompt cost falls back to a rune
// count, which overestimates slightly and is safe.
func TokenBudget(prompt string, length int) int64 {
	n, err := NumTokens(prompt)
	if err != nil {
		n = RuneLen(prompt)
	}
	budget := int64(n + length*2)
	if budget > maxCompletionTokens {
		return maxCompletionTokens
	}
	return budget
}
