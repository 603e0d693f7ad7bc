package anthropic

import "github.com/fwojciec/tutor"

// ConvertTurns exposes convertTurns for testing.
func ConvertTurns(turns []tutor.Turn) []map[string]any {
	msgs := convertTurns(turns)
	out := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		texts := make([]string, len(m.Content))
		for j, b := range m.Content {
			texts[j] = b.Text
		}
		out[i] = map[string]any{"role": m.Role, "texts": texts}
	}
	return out
}
