package ai

import "strings"

// Part is one element of a generation prompt: either text or binary data
// such as an image.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart returns a text prompt part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BinaryPart returns a binary prompt part, e.g. BinaryPart("image/jpeg", img).
func BinaryPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsBinary reports whether the part carries binary data.
func (p Part) IsBinary() bool {
	return p.Data != nil
}

// PromptText joins the text parts, skipping binary ones. Used for logging
// and for backends that cannot accept binary input.
func PromptText(parts []Part) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.IsBinary() {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
