package graph

import (
	"fmt"
	"strings"
)

// Difficulty is the ordinal difficulty tier of a concept
type Difficulty int

const (
	Beginner Difficulty = iota
	Intermediate
	Advanced
)

// Difficulties lists every tier in ascending order
var Difficulties = []Difficulty{Beginner, Intermediate, Advanced}

func (d Difficulty) String() string {
	switch d {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Advanced:
		return "advanced"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// Title returns the tier name used in captions
func (d Difficulty) Title() string {
	s := d.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseDifficulty parses a tier name (case-insensitive)
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner", "basic":
		return Beginner, nil
	case "intermediate":
		return Intermediate, nil
	case "advanced":
		return Advanced, nil
	}
	return Beginner, fmt.Errorf("unknown difficulty %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Difficulty) UnmarshalText(b []byte) error {
	v, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Category is the domain tag of a concept, e.g. "tactical" or "strategic"
type Category string

// RelationType tags a relationship
type RelationType string

const (
	UsedBy      RelationType = "used-by"
	ContainedIn RelationType = "contained-in"
	BelongsTo   RelationType = "belongs-to"
)

// Concept is the content of a node as supplied by the content layer
type Concept struct {
	ID          string     `json:"id" yaml:"id" toml:"id" validate:"required"`
	Name        string     `json:"name" yaml:"name" toml:"name" validate:"required"`
	Category    Category   `json:"category" yaml:"category" toml:"category"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty" toml:"difficulty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty" toml:"description"`
	Examples    []string   `json:"examples,omitempty" yaml:"examples,omitempty" toml:"examples"`
}

// Relationship is a directed, typed edge between two concept ids
type Relationship struct {
	From string       `json:"from" yaml:"from" toml:"from" validate:"required"`
	To   string       `json:"to" yaml:"to" toml:"to" validate:"required"`
	Type RelationType `json:"type" yaml:"type" toml:"type"`
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", r.From, r.Type, r.To)
}

// Payload is the atomic concept set handed over by the content layer
type Payload struct {
	Concepts      []Concept      `json:"nodes" yaml:"nodes" toml:"nodes"`
	Relationships []Relationship `json:"edges" yaml:"edges" toml:"edges"`
}

// Tier is the appearance of one difficulty tier
type Tier struct {
	Radius float64 `mapstructure:"radius" yaml:"radius" validate:"gt=0"`
	Color  string  `mapstructure:"color" yaml:"color" validate:"hexcolor"`
}

// TierTable maps difficulty to appearance. Radius and color are always
// looked up here, never stored on a node.
type TierTable map[Difficulty]Tier

// DefaultTiers returns the stock appearance table
func DefaultTiers() TierTable {
	return TierTable{
		Beginner:     {Radius: 18, Color: "#10b981"},
		Intermediate: {Radius: 24, Color: "#3b82f6"},
		Advanced:     {Radius: 30, Color: "#ef4444"},
	}
}

// Radius returns the radius for d, falling back to the beginner tier
func (t TierTable) Radius(d Difficulty) float64 {
	if tier, ok := t[d]; ok && tier.Radius > 0 {
		return tier.Radius
	}
	return DefaultTiers()[Beginner].Radius
}

// Color returns the fill color for d
func (t TierTable) Color(d Difficulty) string {
	if tier, ok := t[d]; ok && tier.Color != "" {
		return tier.Color
	}
	if tier, ok := DefaultTiers()[d]; ok {
		return tier.Color
	}
	return DefaultTiers()[Beginner].Color
}
