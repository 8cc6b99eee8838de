package event

// Type is the kind of input event a frontend reports.
type Type int

const (
	Press   Type = iota // button went down
	Release             // button went up
	Hold                // repeated while down, never debounced
)

func (t Type) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	case Hold:
		return "hold"
	}
	return "unknown"
}
