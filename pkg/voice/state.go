package voice

// State is the recognition state of a Bridge.
type State int

const (
	// Idle means no recognition session is active.
	Idle State = iota
	// Listening means a recognition session is capturing speech.
	Listening
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the bridge handed to hosts.
type Status struct {
	State                State  `json:"state"`
	Muted                bool   `json:"muted"`
	RecognitionAvailable bool   `json:"recognitionAvailable"`
	SynthesisAvailable   bool   `json:"synthesisAvailable"`
	LastError            string `json:"lastError,omitempty"`

	// Interim is the running transcript while listening.
	Interim string `json:"interim,omitempty"`
}

// Listening reports whether the bridge is capturing speech.
func (s Status) Listening() bool {
	return s.State == Listening
}
