package core

// Speaker tags a history entry with a chat-API side. The canonical history of
// a session is kept from the clinician's perspective: the clinician's own
// lines are SpeakerAssistant and the patient's lines are SpeakerUser.
type Speaker string

const (
	// SpeakerAssistant marks a line spoken by whichever role owns the view.
	SpeakerAssistant Speaker = "assistant"
	// SpeakerUser marks a line spoken by the other participant.
	SpeakerUser Speaker = "user"
)

// Utterance is one line of the in-memory transcript.
type Utterance struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// History is the ordered in-memory transcript of one running session. It is
// owned exclusively by the room's orchestrator goroutine and discarded when
// the session ends; the persisted Message stream is the durable record.
type History []Utterance

// Flipped returns the history as seen from the other side of the
// conversation: every assistant line becomes a user line and vice versa. The
// patient model is prompted with a flipped view so that it sees its own prior
// lines as "assistant" and the clinician's as "user".
//
// The transform is pure; the receiver is never mutated.
func (h History) Flipped() History {
	if h == nil {
		return nil
	}
	flipped := make(History, len(h))
	for i, u := range h {
		speaker := SpeakerAssistant
		if u.Speaker == SpeakerAssistant {
			speaker = SpeakerUser
		}
		flipped[i] = Utterance{Speaker: speaker, Text: u.Text}
	}
	return flipped
}

// Clone returns a defensive copy, useful for test doubles that record the
// history they were invoked with.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	c := make(History, len(h))
	copy(c, h)
	return c
}
