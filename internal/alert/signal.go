package alert

import (
	"strings"
)

// Signal is the classification of an alert.
// The set is closed; anything the backend sends that is not recognised
// becomes SignalUnknown.
type Signal int

const (
	SignalUnknown Signal = iota
	SignalPrime
	SignalSharpshooter
	SignalOpportunist
	SignalSell
)

// Badge is the display label of a signal.
type Badge struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Class string `json:"class"`
}

// String returns the wire name of the signal.
func (s Signal) String() string {
	switch s {
	case SignalPrime:
		return "prime"
	case SignalSharpshooter:
		return "sharpshooter"
	case SignalOpportunist:
		return "opportunist"
	case SignalSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Badge returns the badge for the signal, with a generic badge for unknown.
func (s Signal) Badge() Badge {
	switch s {
	case SignalPrime:
		return Badge{Label: "Prime", Icon: "💎", Class: "badge-prime"}
	case SignalSharpshooter:
		return Badge{Label: "Sharpshooter", Icon: "🎯", Class: "badge-sharpshooter"}
	case SignalOpportunist:
		return Badge{Label: "Opportunist", Icon: "👍", Class: "badge-opportunist"}
	case SignalSell:
		return Badge{Label: "Sell", Icon: "🔥", Class: "badge-sell"}
	default:
		return Badge{Label: "Unknown", Icon: "•", Class: "badge-unknown"}
	}
}

// MarshalText encodes the signal as its wire name.
func (s Signal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSignal maps a backend signal value onto the closed set.
// It accepts decorated scanner labels such as "💎 Prime".
func ParseSignal(v string) Signal {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return SignalUnknown
	}

	// Scanner labels carry an icon before the name.
	if i := strings.LastIndexByte(v, ' '); i >= 0 {
		v = v[i+1:]
	}

	switch v {
	case "prime":
		return SignalPrime
	case "sharpshooter":
		return SignalSharpshooter
	case "opportunist":
		return SignalOpportunist
	case "sell":
		return SignalSell
	default:
		return SignalUnknown
	}
}
