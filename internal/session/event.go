package session

type EventKind int

const (
	KeyEnter EventKind = iota
	KeyBackspace
	KeyEscape
	// KeyRune carries a printable character in Event.Rune.
	KeyRune
	// KeyOther is any key press without text, such as Shift or an arrow.
	KeyOther
	PointerMotion
)

func (k EventKind) String() string {
	switch k {
	case KeyEnter:
		return "enter"
	case KeyBackspace:
		return "backspace"
	case KeyEscape:
		return "escape"
	case KeyRune:
		return "rune"
	case KeyOther:
		return "key"
	case PointerMotion:
		return "pointer"
	}
	return "unknown"
}

// Event is one input occurrence within a frame.
type Event struct {
	Kind EventKind
	Rune rune
}

func Rune(r rune) Event { return Event{Kind: KeyRune, Rune: r} }

// Text expands s into one KeyRune event per character.
func Text(s string) []Event {
	out := make([]Event, 0, len(s))
	for _, r := range s {
		out = append(out, Rune(r))
	}
	return out
}
