package voice

// Mood is the avatar expression shown next to the transcript.
type Mood string

const (
	MoodThinking Mood = "thinking"
	MoodSpeaking Mood = "speaking"
	MoodSmile    Mood = "smile"
	MoodIdle     Mood = "idle"
)

// MoodFor maps loop signals to an expression with a fixed precedence:
// thinking beats speaking beats typing beats idle.
func MoodFor(thinking, speaking, typing bool) Mood {
	switch {
	case thinking:
		return MoodThinking
	case speaking:
		return MoodSpeaking
	case typing:
		return MoodSmile
	default:
		return MoodIdle
	}
}
