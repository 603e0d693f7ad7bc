package tutor

// Speaker identifies who produced a Turn.
type Speaker string

const (
	SpeakerStudent   Speaker = "student"
	SpeakerAssistant Speaker = "assistant"
)
