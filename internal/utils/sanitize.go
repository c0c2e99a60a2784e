package utils

import "strings"

// maxMessageLength caps inbound message size before any processing
const maxMessageLength = 1000

// SanitizeInput normalizes an inbound WhatsApp message: trims whitespace,
// strips control characters and caps the length.
func SanitizeInput(text string) string {
	text = strings.TrimSpace(text)

	var b strings.Builder
	for _, r := range text {
		if r == '\n' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	text = b.String()

	if len(text) > maxMessageLength {
		text = text[:maxMessageLength]
	}
	return text
}
