package ai

import "strings"

// FallbackReply is the last resort when every provider attempt has failed.
// Pure keyword-containment rules over the lowercased message, first match
// wins. It never fails and never calls out.
func FallbackReply(message string) string {
	m := strings.ToLower(message)
	for _, word := range []string{"hello", "hi", "hey"} {
		if strings.Contains(m, word) {
			return "Hello! I'm here to support you. How are you feeling today?"
		}
	}
	for _, word := range []string{"stress", "stressed", "overwhelmed"} {
		if strings.Contains(m, word) {
			return "I'm sorry you're feeling stressed. Want to try a simple 4-7-8 breathing exercise together?"
		}
	}
	if strings.Contains(m, "resources") || strings.Contains(m, "help") || strings.Contains(m, "support") {
		return "I can help explore support options. Are you looking for local helplines, clinics, or online groups?"
	}
	if strings.Contains(m, "breathing") {
		return "Let's try the 4-7-8 technique: inhale 4s, hold 7s, exhale 8s. Shall we start?"
	}
	return "I hear you. Could you share a bit more? I'm here to listen and help you navigate options."
}
