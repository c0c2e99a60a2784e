package services

import (
	"log"
	"os"
)

// LoadKnowledge reads the static FAQ document passed unmodified to the
// oracle's question answering. Loaded once at startup; a missing file only
// degrades FAQ answers, it never blocks the bot.
func LoadKnowledge(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️  Could not load knowledge document %s: %v", path, err)
		return ""
	}
	log.Printf("✅ Knowledge document loaded (%d bytes)", len(content))
	return string(content)
}
