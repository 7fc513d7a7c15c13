package query

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// TestRender_Golden pins the full text of representative queries.
//
// To regenerate golden files, run:
//
//	go test ./internal/query -run TestRender_Golden -update
func TestRender_Golden(t *testing.T) {
	f := newFixture(t)

	early := f.Song.Select(f.SongTitle).Where(f.SongPage, "<", 100)
	late := f.Song.Select(f.SongTitle).Where(f.SongPage, ">", 400)

	tests := []struct {
		name string
		q    *Query
	}{
		{
			name: "leader_song_counts",
			q: f.Leader.Select(f.LeaderName, f.SongTitle.Count()).
				Group(f.Leader.ID).
				OrderDesc(f.SongTitle.Count()),
		},
		{
			name: "song_list_with_leaders",
			q: f.Song.SelectList(f.SongTitle, f.SongLeaders).
				Having(f.Lead.ID.Count(), ">", 10),
		},
		{
			name: "union_ordered",
			q:    early.Union(late).OrderAsc(f.SongTitle).Limit(10),
		},
		{
			name: "singings_by_year",
			q: f.Singing.Select(f.SingingName).
				SectionIndex(f.SingingYear, Desc).
				Where(f.LeaderName, "IN", []string{"O'Neal", "Smith"}).
				Distinct(),
		},
		{
			name: "paged_search",
			q: f.Song.Select(f.SongTitle, f.SongPage).
				Where(f.SongTitle, "LIKE", "?").Or(f.SongPage, "=", Param).
				Where(f.SingingYear, ">=", 1990).
				Range(20, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, err := tt.q.Render()
			require.NoError(t, err)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, tt.name, []byte(sql))
		})
	}
}
