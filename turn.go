package tutor

import "time"

// Turn is one message in a Transcript. Turns are values and are never
// modified after they are appended.
type Turn struct {
	Speaker   Speaker
	Text      string
	Timestamp time.Time
}

// StudentTurn returns a Turn spoken by the student.
func StudentTurn(text string) Turn {
	return Turn{Speaker: SpeakerStudent, Text: text, Timestamp: time.Now()}
}

// AssistantTurn returns a Turn spoken by the assistant.
func AssistantTurn(text string) Turn {
	return Turn{Speaker: SpeakerAssistant, Text: text, Timestamp: time.Now()}
}
