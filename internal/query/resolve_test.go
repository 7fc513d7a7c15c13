package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_DirectJoinIsSymmetric(t *testing.T) {
	reg := NewRegistry()
	a := reg.Declare("A")
	b := reg.Declare("B")
	ax := a.Column("x")
	by := b.Column("y")
	reg.JoinTables(a, b, "A.x = B.y", false)
	require.NoError(t, reg.Finalize())

	fromA, err := a.Select(by).Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT B.y AS col_B_y FROM A JOIN B ON A.x = B.y", fromA)

	fromB, err := b.Select(ax).Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT A.x AS col_A_x FROM B JOIN A ON A.x = B.y", fromB)
}

func TestResolve_SingleBridgeEmitsTwoClauses(t *testing.T) {
	f := newFixture(t)

	joins, err := f.Leader.Select(f.SongTitle).Joins()
	require.NoError(t, err)
	assert.Equal(t, []JoinClause{
		{Table: "Lead", On: "Lead.leader_id = Leader.id"},
		{Table: "Song", On: "Lead.song_id = Song.id"},
	}, joins)
}

func TestResolve_AmbiguousBridge(t *testing.T) {
	_, a, _, _, b := diamond(t)

	_, err := a.Select(b.Column("x")).Render()
	require.Error(t, err)
	assert.True(t, IsAmbiguousJoinPath(err))
	assert.False(t, IsNoJoinPath(err))

	var je *JoinError
	require.True(t, errors.As(err, &je))
	assert.Equal(t, "A", je.From)
	assert.Equal(t, "B", je.To)
	assert.Equal(t, []string{"M1", "M2"}, je.Bridges)
}

func TestResolve_ExplicitIntermediateDisambiguates(t *testing.T) {
	_, a, m1, _, b := diamond(t)

	sql, err := a.Select(b.Column("x")).Join(m1).Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT B.x AS col_B_x FROM A JOIN M1 ON A.id = M1.a_id JOIN B ON M1.b_id = B.id", sql)
}

func TestResolve_Unreachable(t *testing.T) {
	reg := NewRegistry()
	a := reg.Declare("A")
	b := reg.Declare("B")
	c := reg.Declare("C")
	reg.JoinTables(a, c, "A.c_id = C.id", false)
	require.NoError(t, reg.Finalize())

	_, err := a.Select(b.ID).Render()
	require.Error(t, err)
	assert.True(t, IsNoJoinPath(err))
	assert.Contains(t, err.Error(), "no join path found between A and B")
}

func TestResolve_JoinedTableIsReused(t *testing.T) {
	f := newFixture(t)

	// Singing is not adjacent to Song, but Lead is already joined and is.
	sql, err := f.Song.Select(f.SongTitle, f.LeadLeaderID, f.SingingYear).Render()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT Song.title AS col_Song_title, Lead.leader_id AS col_Lead_leader_id, Singing.year AS col_Singing_year"+
			" FROM Song JOIN Lead ON Lead.song_id = Song.id LEFT JOIN Singing ON Lead.singing_id = Singing.id",
		sql)
}

func TestResolve_OuterEdgePropagates(t *testing.T) {
	f := newFixture(t)

	joins, err := f.Song.Select(f.SingingName).Joins()
	require.NoError(t, err)
	require.Len(t, joins, 2)
	assert.False(t, joins[0].Outer)
	assert.True(t, joins[1].Outer)
	assert.Equal(t, " LEFT JOIN Singing ON Lead.singing_id = Singing.id", joins[1].String())
}

func TestResolve_RequestedOuterAppliesToBothLegs(t *testing.T) {
	f := newFixture(t)

	sql, err := f.Leader.Select(f.LeaderName).LeftJoin(f.Song).Render()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT Leader.name AS col_Leader_name FROM Leader LEFT JOIN Lead ON Lead.leader_id = Leader.id LEFT JOIN Song ON Lead.song_id = Song.id",
		sql)
}

func TestResolve_FirstReferenceWins(t *testing.T) {
	f := newFixture(t)

	inner := f.Song.Select(f.SongTitle).Join(f.Lead).LeftJoin(f.Lead)
	joins, err := inner.Joins()
	require.NoError(t, err)
	require.Len(t, joins, 1)
	assert.False(t, joins[0].Outer)

	outer := f.Song.Select(f.SongTitle).LeftJoin(f.Lead).Join(f.Lead)
	joins, err = outer.Joins()
	require.NoError(t, err)
	require.Len(t, joins, 1)
	assert.True(t, joins[0].Outer)
}

func TestResolve_ExplicitJoinFailureSurfacesAtRender(t *testing.T) {
	_, a, _, _, b := diamond(t)

	q := a.Select(a.ID).Join(b)
	assert.True(t, IsAmbiguousJoinPath(q.Err()))

	_, err := q.Render()
	assert.True(t, IsAmbiguousJoinPath(err))
}

func TestResolve_JoinOnBypassesGraph(t *testing.T) {
	reg := NewRegistry()
	a := reg.Declare("A")
	b := reg.Declare("B")
	bx := b.Column("x")
	aBID := a.Column("b_id")
	require.NoError(t, reg.Finalize())

	sql, err := a.Select(bx).LeftJoinOn(b, aBID, b.ID).Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT B.x AS col_B_x FROM A LEFT JOIN B ON A.b_id = B.id", sql)
}

func TestResolve_JoinFromIntermediate(t *testing.T) {
	f := newFixture(t)

	sql, err := f.Singing.Select(f.SingingName).
		Join(f.Lead).
		JoinFrom(f.Lead, f.Song).
		Render()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT Singing.name AS col_Singing_name FROM Singing LEFT JOIN Lead ON Lead.singing_id = Singing.id JOIN Song ON Lead.song_id = Song.id",
		sql)
}

func TestResolve_JoinWithoutFromTable(t *testing.T) {
	f := newFixture(t)

	q := New(f.reg).Join(f.Song)
	assert.ErrorIs(t, q.Err(), ErrNoFromTable)
}
