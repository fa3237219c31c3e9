package session

// State is the position of a session in its submit cycle
type State int

const (
	StateIdle State = iota
	StateTranslating
	StateSaved
	StateSaveFailed
	StateTranslateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTranslating:
		return "Translating"
	case StateSaved:
		return "Saved"
	case StateSaveFailed:
		return "SaveFailed"
	case StateTranslateFailed:
		return "TranslateFailed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s ends a submit cycle
func (s State) Terminal() bool {
	return s == StateSaved || s == StateSaveFailed || s == StateTranslateFailed
}
