package bridge

// callerFrame is one inbound frame on the Twilio media-stream connection.
// The event tag discriminates which nested payload is populated.
type callerFrame struct {
	Event string `json:"event"`
	Start struct {
		StreamSid string `json:"streamSid"`
	} `json:"start,omitempty"`
	Media struct {
		Timestamp string `json:"timestamp"`
		Payload   string `json:"payload"`
	} `json:"media,omitempty"`
	Mark struct {
		Name string `json:"name"`
	} `json:"mark,omitempty"`
	Stop struct {
		StreamSid string `json:"streamSid"`
	} `json:"stop,omitempty"`
}

type mediaFrame struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

type markFrame struct {
	Event     string   `json:"event"`
	StreamSid string   `json:"streamSid"`
	Mark      markName `json:"mark"`
}

type markName struct {
	Name string `json:"name"`
}

// clearFrame flushes audio Twilio has buffered but not yet played.
type clearFrame struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}
