package conceptmap

import (
	"slices"
	"strings"

	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

// Filter selects which concepts are visible. Empty criteria match
// everything; non-empty criteria must all match.
type Filter struct {
	Categories   []graph.Category   `json:"categories,omitempty"`
	Difficulties []graph.Difficulty `json:"difficulties,omitempty"`
	// Query is a case-insensitive substring of name or description
	Query string `json:"query,omitempty"`
}

// IsZero reports whether f matches every concept
func (f Filter) IsZero() bool {
	return len(f.Categories) == 0 && len(f.Difficulties) == 0 && strings.TrimSpace(f.Query) == ""
}

// Matches reports whether c passes f
func (f Filter) Matches(c graph.Concept) bool {
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, c.Category) {
		return false
	}
	if len(f.Difficulties) > 0 && !slices.Contains(f.Difficulties, c.Difficulty) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Description), q)
	}
	return true
}

func (f Filter) clone() Filter {
	return Filter{
		Categories:   slices.Clone(f.Categories),
		Difficulties: slices.Clone(f.Difficulties),
		Query:        f.Query,
	}
}

// Detail is what the detail panel receives on selection and what the
// accessible side-channel lists for every concept
type Detail struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Difficulty        graph.Difficulty `json:"difficulty"`
	Category          graph.Category   `json:"category"`
	Description       string           `json:"description,omitempty"`
	Examples          []string         `json:"examples,omitempty"`
	RelatedConceptIDs []string         `json:"relatedConceptIds"`
	Visible           bool             `json:"visible"`
}

func detailOf(m *graph.Model, n *graph.Node) Detail {
	related := []string{}
	for nb := range m.NeighborsOf(n.ID) {
		related = append(related, nb.ID)
	}
	return Detail{
		ID:                n.ID,
		Name:              n.Name,
		Difficulty:        n.Difficulty,
		Category:          n.Category,
		Description:       n.Description,
		Examples:          slices.Clone(n.Examples),
		RelatedConceptIDs: related,
		Visible:           n.Visible,
	}
}
