package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourConcepts() Payload {
	return Payload{
		Concepts: []Concept{
			{ID: "A", Name: "Entity", Difficulty: Beginner},
			{ID: "B", Name: "Value Object", Difficulty: Beginner},
			{ID: "C", Name: "Aggregate", Difficulty: Intermediate},
			{ID: "D", Name: "Bounded Context", Difficulty: Advanced},
		},
		Relationships: []Relationship{
			{From: "A", To: "B", Type: UsedBy},
			{From: "B", To: "C", Type: ContainedIn},
			{From: "C", To: "D", Type: BelongsTo},
		},
	}
}

func ids(seq func(func(*Node) bool)) []string {
	var out []string
	for n := range seq {
		out = append(out, n.ID)
	}
	return out
}

func TestModel_Load(t *testing.T) {
	m := NewModel(nil)
	require.NoError(t, m.Load(fourConcepts()))

	assert.Equal(t, 4, m.Len())
	assert.Len(t, m.Edges(), 3)
	assert.Equal(t, uint64(1), m.Generation())

	n, ok := m.FindNode("C")
	require.True(t, ok)
	assert.Equal(t, "Aggregate", n.Name)
	assert.True(t, n.Visible)
	assert.Equal(t, 1.0, n.Alpha)

	_, ok = m.FindNode("Z")
	assert.False(t, ok)
}

func TestModel_NeighborsOf(t *testing.T) {
	m := NewModel(nil)
	require.NoError(t, m.Load(fourConcepts()))

	assert.Equal(t, []string{"A", "C"}, ids(m.NeighborsOf("B")))
	assert.Equal(t, []string{"B"}, ids(m.NeighborsOf("A")))
	assert.Equal(t, []string{"C"}, ids(m.NeighborsOf("D")))
	assert.Empty(t, ids(m.NeighborsOf("missing")))

	// restartable
	seq := m.NeighborsOf("B")
	assert.Equal(t, ids(seq), ids(seq))
}

func TestModel_NeighborsOfDeduplicates(t *testing.T) {
	m := NewModel(nil)
	p := fourConcepts()
	p.Relationships = append(p.Relationships,
		Relationship{From: "C", To: "B", Type: UsedBy},
		Relationship{From: "B", To: "B", Type: UsedBy},
	)
	require.NoError(t, m.Load(p))

	assert.Equal(t, []string{"A", "C"}, ids(m.NeighborsOf("B")))
}

func TestModel_NeighborsOfStopsEarly(t *testing.T) {
	m := NewModel(nil)
	require.NoError(t, m.Load(fourConcepts()))

	var got []string
	for n := range m.NeighborsOf("B") {
		got = append(got, n.ID)
		break
	}
	assert.Equal(t, []string{"A"}, got)
}

func TestModel_LoadDropsDanglingEdges(t *testing.T) {
	m := NewModel(nil)
	p := fourConcepts()
	p.Relationships = append(p.Relationships,
		Relationship{From: "A", To: "ghost", Type: UsedBy},
		Relationship{From: "nobody", To: "D", Type: UsedBy},
	)

	err := m.Load(p)
	require.Error(t, err)

	var integrity *DataIntegrityError
	require.True(t, errors.As(err, &integrity))
	require.Len(t, integrity.Dropped, 2)
	assert.Equal(t, "ghost", integrity.Dropped[0].Relationship.To)
	assert.Contains(t, integrity.Dropped[1].Reason, "nobody")

	// the load still happened
	assert.Equal(t, 4, m.Len())
	assert.Len(t, m.Edges(), 3)
}

func TestModel_LoadDuplicateAndEmptyIDs(t *testing.T) {
	m := NewModel(nil)
	p := fourConcepts()
	p.Concepts = append(p.Concepts,
		Concept{ID: "A", Name: "Second A"},
		Concept{Name: "No id"},
	)

	err := m.Load(p)
	var integrity *DataIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, []string{"A"}, integrity.Duplicates)
	assert.Equal(t, 1, integrity.Invalid)

	n, _ := m.FindNode("A")
	assert.Equal(t, "Entity", n.Name, "first occurrence wins")
}

func TestModel_LoadReplacesAtomically(t *testing.T) {
	m := NewModel(nil)
	require.NoError(t, m.Load(fourConcepts()))

	require.NoError(t, m.Load(Payload{Concepts: []Concept{{ID: "X", Name: "Repository"}}}))
	assert.Equal(t, 1, m.Len())
	assert.Empty(t, m.Edges())
	_, ok := m.FindNode("A")
	assert.False(t, ok)
	assert.Equal(t, uint64(2), m.Generation())
}

func TestModel_RadiusAndColorFollowTier(t *testing.T) {
	tiers := TierTable{
		Beginner:     {Radius: 10, Color: "#111111"},
		Intermediate: {Radius: 20, Color: "#222222"},
		Advanced:     {Radius: 30, Color: "#333333"},
	}
	m := NewModel(tiers)
	require.NoError(t, m.Load(fourConcepts()))

	i, _ := m.Index("D")
	assert.Equal(t, 30.0, m.Radius(i))
	assert.Equal(t, "#333333", m.Color(i))

	// changing the tier changes the derived radius, nothing to resync
	m.Node(i).Difficulty = Beginner
	assert.Equal(t, 10.0, m.Radius(i))
	assert.Equal(t, "#111111", m.Color(i))
}

func TestDifficulty_Text(t *testing.T) {
	tests := []struct {
		in   string
		want Difficulty
		err  bool
	}{
		{"beginner", Beginner, false},
		{"Intermediate", Intermediate, false},
		{" ADVANCED ", Advanced, false},
		{"expert", Beginner, true},
	}
	for _, tt := range tests {
		var d Difficulty
		err := d.UnmarshalText([]byte(tt.in))
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, d)
	}

	b, err := Advanced.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "advanced", string(b))
	assert.Equal(t, "Intermediate", Intermediate.Title())
}
