package dynamics

import (
	"fmt"
	"strings"
)

// Kind classifies a risk factor by asset class.
type Kind int

const (
	KindRate Kind = iota
	KindFX
	KindCredit
)

func (k Kind) String() string {
	switch k {
	case KindRate:
		return "rate"
	case KindFX:
		return "fx"
	case KindCredit:
		return "credit"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a config string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "rate", "ir":
		return KindRate, nil
	case "fx":
		return KindFX, nil
	case "credit", "cr":
		return KindCredit, nil
	default:
		return 0, fmt.Errorf("dynamics: unknown factor kind %q: %w", s, ErrFactor)
	}
}

// Factor identifies one scalar component of the joint state vector. The
// position in the provider's factor list is the component's index for the
// lifetime of the process.
type Factor struct {
	Name string
	Kind Kind
}

func (f Factor) String() string {
	return fmt.Sprintf("%s(%s)", f.Name, f.Kind)
}
