package models

import (
	"fmt"
	"math"
	"strings"
)

// Side is the direction of an option position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign returns +1 for a long position and -1 for a short one.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// ParseSide parses a position side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("unknown side %q (must be buy or sell)", s)
}

// OptionKind is CALL or PUT.
type OptionKind string

const (
	OptionCall OptionKind = "CALL"
	OptionPut  OptionKind = "PUT"
)

// ParseOptionKind parses an option kind.
func ParseOptionKind(s string) (OptionKind, error) {
	switch OptionKind(strings.ToUpper(strings.TrimSpace(s))) {
	case OptionCall:
		return OptionCall, nil
	case OptionPut:
		return OptionPut, nil
	}
	return "", fmt.Errorf("unknown option kind %q (must be call or put)", s)
}

// OptionContract is a European option. It is built once per run and only read afterwards.
type OptionContract struct {
	Strike        float64    `json:"strike"`
	Notional      float64    `json:"notional"`
	Side          Side       `json:"side"`
	Kind          OptionKind `json:"kind"`
	ReferenceSpot float64    `json:"reference_spot"`
	Maturity      float64    `json:"maturity"`
}

// NewOptionContract creates a new OptionContract.
func NewOptionContract(strike, notional float64, side Side, kind OptionKind, referenceSpot, maturity float64) OptionContract {
	return OptionContract{
		Strike:        strike,
		Notional:      notional,
		Side:          side,
		Kind:          kind,
		ReferenceSpot: referenceSpot,
		Maturity:      maturity,
	}
}

// Payoff returns the signed, notional-scaled payoff at the given terminal price.
func (o OptionContract) Payoff(terminal float64) float64 {
	var intrinsic float64
	switch o.Kind {
	case OptionPut:
		intrinsic = math.Max(o.Strike-terminal, 0)
	default:
		intrinsic = math.Max(terminal-o.Strike, 0)
	}
	return o.Side.Sign() * o.Notional * intrinsic
}

// String returns a short human-readable description.
func (o OptionContract) String() string {
	return fmt.Sprintf("%s %s K=%g T=%g x%g", o.Side, o.Kind, o.Strike, o.Maturity, o.Notional)
}
