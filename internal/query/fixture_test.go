package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture is a small hymnal schema: songs are led by leaders at singings,
// and Lead is the only table connecting the other three.
type fixture struct {
	reg *Registry

	Song        *Table
	SongTitle   *Column
	SongPage    *Column
	SongLeaders *Column // correlated subquery, added on create

	Leader     *Table
	LeaderName *Column

	Lead          *Table
	LeadSongID    *Column
	LeadLeaderID  *Column
	LeadSingingID *Column

	Singing     *Table
	SingingName *Column
	SingingYear *Column
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := NewRegistry()
	f := &fixture{reg: reg}

	f.Song = reg.Declare("Song")
	f.SongTitle = f.Song.Column("title")
	f.SongPage = f.Song.Column("page")

	f.Leader = reg.Declare("Leader")
	f.LeaderName = f.Leader.Column("name")

	f.Lead = reg.Declare("Lead")
	f.LeadSongID = f.Lead.Column("song_id")
	f.LeadLeaderID = f.Lead.Column("leader_id")
	f.LeadSingingID = f.Lead.Column("singing_id")

	f.Singing = reg.Declare("Singing")
	f.SingingName = f.Singing.Column("name")
	f.SingingYear = f.Singing.Column("year")

	reg.Join(f.LeadSongID, f.Song.ID)
	reg.Join(f.LeadLeaderID, f.Leader.ID)
	reg.LeftJoin(f.LeadSingingID, f.Singing.ID)

	f.Song.OnCreate(func(song *Table) error {
		col, err := song.SubqueryOf(f.LeadLeaderID.CountDistinct())
		f.SongLeaders = col
		return err
	})

	require.NoError(t, reg.Finalize())
	return f
}

// diamond builds A-M1-B and A-M2-B with no direct A-B edge.
func diamond(t *testing.T) (reg *Registry, a, m1, m2, b *Table) {
	t.Helper()

	reg = NewRegistry()
	a = reg.Declare("A")
	m1 = reg.Declare("M1")
	m2 = reg.Declare("M2")
	b = reg.Declare("B")
	b.Column("x")

	reg.JoinTables(a, m1, "A.id = M1.a_id", false)
	reg.JoinTables(m1, b, "M1.b_id = B.id", false)
	reg.JoinTables(a, m2, "A.id = M2.a_id", false)
	reg.JoinTables(m2, b, "M2.b_id = B.id", false)

	require.NoError(t, reg.Finalize())
	return reg, a, m1, m2, b
}
