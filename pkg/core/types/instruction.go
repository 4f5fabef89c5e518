package types

import "encoding/json"

// Instruction is one control verb returned to the telephony layer. Each
// concrete instruction marshals to a flat JSON object carrying a "verb"
// discriminator, matching the jambonz application protocol.
type Instruction interface {
	Verb() string
}

// Instructions is the ordered instruction list for one webhook response.
type Instructions []Instruction

// Synthesizer selects the platform TTS vendor for a Say instruction. An
// empty vendor lets the telephony layer pick its default.
type Synthesizer struct {
	Vendor string `json:"vendor"`
}

// Say speaks text with the telephony platform's own TTS.
type Say struct {
	Text   string
	Vendor string
}

func (Say) Verb() string { return "say" }

func (s Say) MarshalJSON() ([]byte, error) {
	out := struct {
		Verb        string       `json:"verb"`
		Text        string       `json:"text"`
		Synthesizer *Synthesizer `json:"synthesizer,omitempty"`
	}{
		Verb: "say",
		Text: s.Text,
	}
	if s.Vendor != "" {
		out.Synthesizer = &Synthesizer{Vendor: s.Vendor}
	}
	return json.Marshal(out)
}

// Play streams a generated audio artifact to the caller.
type Play struct {
	URL string
}

func (Play) Verb() string { return "play" }

func (p Play) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Verb string `json:"verb"`
		URL  string `json:"url"`
	}{Verb: "play", URL: p.URL})
}

// Recognizer configures speech recognition for a Gather.
type Recognizer struct {
	Vendor   string `json:"vendor"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// Gather opens a listening window and posts the result to ActionURL.
type Gather struct {
	InputModes           []string
	TimeoutSeconds       int
	SpeechTimeoutSeconds int
	ActionURL            string
	Recognizer           *Recognizer
}

func (Gather) Verb() string { return "gather" }

func (g Gather) MarshalJSON() ([]byte, error) {
	input := g.InputModes
	if len(input) == 0 {
		input = []string{"speech"}
	}
	return json.Marshal(struct {
		Verb          string      `json:"verb"`
		Input         []string    `json:"input"`
		ActionHook    string      `json:"actionHook"`
		Timeout       int         `json:"timeout"`
		SpeechTimeout int         `json:"speechTimeout"`
		Recognizer    *Recognizer `json:"recognizer,omitempty"`
	}{
		Verb:          "gather",
		Input:         input,
		ActionHook:    g.ActionURL,
		Timeout:       g.TimeoutSeconds,
		SpeechTimeout: g.SpeechTimeoutSeconds,
		Recognizer:    g.Recognizer,
	})
}

// Hangup terminates the call.
type Hangup struct{}

func (Hangup) Verb() string { return "hangup" }

func (Hangup) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Verb string `json:"verb"`
	}{Verb: "hangup"})
}

// Verbs returns the verb sequence, useful for assertions and logging.
func (in Instructions) Verbs() []string {
	verbs := make([]string, 0, len(in))
	for _, instr := range in {
		verbs = append(verbs, instr.Verb())
	}
	return verbs
}
