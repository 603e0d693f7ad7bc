package json

import "github.com/fwojciec/tutor"

type usageDTO struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func marshalUsage(u tutor.Usage) usageDTO {
	return usageDTO{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens}
}
