// Package lcparts converts between butler prompt parts and langchaingo messages.
package lcparts

import (
	"errors"

	"github.com/poiesic/butler/ai"
	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyResponse is returned when a model answers with no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Messages wraps the parts in a single human message.
func Messages(parts []ai.Part) []llms.MessageContent {
	content := make([]llms.ContentPart, 0, len(parts))
	for _, p := range parts {
		if p.IsBinary() {
			content = append(content, llms.BinaryPart(p.MIMEType, p.Data))
			continue
		}
		content = append(content, llms.TextPart(p.Text))
	}
	return []llms.MessageContent{{Role: llms.ChatMessageTypeHuman, Parts: content}}
}

// Text returns the content of the first choice.
func Text(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
