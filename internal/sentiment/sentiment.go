// Package sentiment splits the bracketed mood tag that providers are asked
// to prefix replies with, e.g. "[MOOD: calm] Glad to hear it."
package sentiment

import "strings"

type Label string

const (
	Happy   Label = "happy"
	Sad     Label = "sad"
	Anxious Label = "anxious"
	Angry   Label = "angry"
	Calm    Label = "calm"
	Neutral Label = "neutral"
)

var known = map[Label]bool{
	Happy: true, Sad: true, Anxious: true, Angry: true, Calm: true, Neutral: true,
}

// Parse extracts the mood tag and the user-visible reply. A malformed,
// absent or unrecognized tag yields Neutral and the raw text unchanged; a
// bad tag must never truncate the reply.
func Parse(raw string) (Label, string) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return Neutral, raw
	}
	end := strings.Index(trimmed, "]")
	if end < 0 {
		return Neutral, raw
	}

	tag := trimmed[1:end]
	if !strings.HasPrefix(strings.ToUpper(tag), "MOOD:") {
		return Neutral, raw
	}
	label := Label(strings.ToLower(strings.TrimSpace(tag[len("MOOD:"):])))
	if !known[label] {
		return Neutral, raw
	}

	return label, strings.TrimSpace(trimmed[end+1:])
}
