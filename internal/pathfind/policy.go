package pathfind

import (
	"fmt"
	"strings"
)

// Mode selects which obstacles an agent may pass.
type Mode uint8

const (
	ModeByAgent Mode = iota
	ModeBash
	ModeNoPassClosedDoors
	ModePassAnything
)

var modeNames = [...]string{"by_agent", "bash", "no_pass_closed_doors", "pass_anything"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", m)
}

// ParseMode accepts the names produced by Mode.String. Empty means ModeByAgent.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeByAgent, nil
	}
	for i, n := range modeNames {
		if strings.EqualFold(s, n) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown traverse mode %q", s)
}

// Danger is a per-cell hazard level.
type Danger uint8

const (
	DangerNone Danger = iota
	DangerSome
	DangerDeadly
)

// ParseDanger maps "none", "some" and "deadly". Empty means DangerDeadly.
func ParseDanger(s string) (Danger, error) {
	switch strings.ToLower(s) {
	case "", "deadly":
		return DangerDeadly, nil
	case "some":
		return DangerSome, nil
	case "none":
		return DangerNone, nil
	}
	return 0, fmt.Errorf("unknown danger level %q", s)
}

const (
	DefaultMoveCardinal = 13
	DefaultMoveDiagonal = 18
	DefaultAvoidWeight  = 8
)

// Policy is the per-search, per-agent traversal configuration.
type Policy struct {
	Mode         Mode
	MoveCardinal int
	MoveDiagonal int

	// Avoid is an optional per-cell avoidance layer, scaled by AvoidWeight.
	Avoid       []uint8
	AvoidWeight int

	// Allowed is an optional per-cell mask; cells outside it are heavily penalised.
	Allowed []bool

	// MaxDanger is the highest danger level the agent will enter.
	MaxDanger Danger
}

func (p Policy) withDefaults() Policy {
	if p.MoveCardinal <= 0 {
		p.MoveCardinal = DefaultMoveCardinal
	}
	if p.MoveDiagonal <= 0 {
		p.MoveDiagonal = DefaultMoveDiagonal
	}
	if p.AvoidWeight <= 0 {
		p.AvoidWeight = DefaultAvoidWeight
	}
	return p
}

func (p *Policy) validate(cells int) error {
	if p.Avoid != nil && len(p.Avoid) != cells {
		return fmt.Errorf("%w: avoid layer has %d cells, grid has %d", ErrInvalidPolicy, len(p.Avoid), cells)
	}
	if p.Allowed != nil && len(p.Allowed) != cells {
		return fmt.Errorf("%w: allowed mask has %d cells, grid has %d", ErrInvalidPolicy, len(p.Allowed), cells)
	}
	if p.MoveDiagonal < p.MoveCardinal {
		return fmt.Errorf("%w: diagonal move cost %d below cardinal %d", ErrInvalidPolicy, p.MoveDiagonal, p.MoveCardinal)
	}
	return nil
}

func (p *Policy) allowedAt(idx int) bool {
	return p.Allowed == nil || p.Allowed[idx]
}

func (p *Policy) move(diagonal bool) int {
	if diagonal {
		return p.MoveDiagonal
	}
	return p.MoveCardinal
}

// octile is the cheapest pure-movement cost of covering dx, dz cells.
func (p *Policy) octile(dx, dz int) int {
	return p.MoveCardinal*(dx+dz) + (p.MoveDiagonal-2*p.MoveCardinal)*min(dx, dz)
}
