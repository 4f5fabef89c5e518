package types

// CallStart announces a new inbound or outbound call.
type CallStart struct {
	CallID    string `json:"call_sid"`
	From      string `json:"from"`
	To        string `json:"to"`
	Direction string `json:"direction"`
}

// Utterance carries a recognized speech result for a live call.
type Utterance struct {
	CallID     string  `json:"call_sid"`
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// NoInput signals that the gather window elapsed without usable speech.
type NoInput struct {
	CallID string `json:"call_sid"`
	Reason string `json:"reason"`
}

// Call status values reported by the telephony layer.
const (
	StatusRinging   = "ringing"
	StatusAnswered  = "answered"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// CallStatus is a call lifecycle status update.
type CallStatus struct {
	CallID string `json:"call_sid"`
	Status string `json:"call_status"`
}

// Terminal reports whether the status ends the call.
func (s CallStatus) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}
