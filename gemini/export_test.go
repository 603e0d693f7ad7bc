package gemini

import (
	"context"
	"iter"

	"github.com/fwojciec/tutor"
	"google.golang.org/genai"
)

var ClassifyError = classifyError

func NewStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) tutor.Stream {
	return newStream(ctx, seq)
}

func BuildConfig(req tutor.Request) *genai.GenerateContentConfig {
	return buildConfig(req)
}
