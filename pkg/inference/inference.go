package inference

import (
	"context"

	"github.com/openai/openai-go/v3"
)

// Inferencer runs a single text-generation call against a model provider.
// Implementations make exactly one provider call per Generate and honor
// ctx cancellation, returning ctx.Err()-wrapped errors on deadline.
type Inferencer interface {
	Generate(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error)
}
