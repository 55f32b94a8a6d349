package thrashing

import "fmt"

// Level is the qualitative swap thrashing severity.
type Level int

const (
	// LevelNone means no sustained hard fault pressure was observed.
	LevelNone Level = iota
	// LevelSuspected means the escalation threshold was sustained for the
	// none-to-suspected window.
	LevelSuspected
	// LevelConfirmed means the escalation threshold was also sustained for
	// the suspected-to-confirmed window.
	LevelConfirmed
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelSuspected:
		return "suspected"
	case LevelConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	switch l {
	case LevelNone, LevelSuspected, LevelConfirmed:
		return []byte(l.String()), nil
	}
	return nil, fmt.Errorf("invalid thrashing level %d", int(l))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*l = LevelNone
	case "suspected":
		*l = LevelSuspected
	case "confirmed":
		*l = LevelConfirmed
	default:
		return fmt.Errorf("unknown thrashing level %q", text)
	}
	return nil
}
