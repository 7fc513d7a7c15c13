// Package testutil holds fixtures shared by package tests: a small hymnal
// schema with matching seed data, and deterministic trace id generators.
package testutil

import (
	"github.com/roach88/sqlpath/internal/query"
)

// Hymnal is a finalized registry in which songs are led by leaders at
// singings. Lead is the only table connecting the other three, and the
// Lead-Singing edge is outer.
type Hymnal struct {
	Registry *query.Registry

	Song        *query.Table
	SongTitle   *query.Column
	SongPage    *query.Column
	SongLeaders *query.Column // COUNT(DISTINCT Lead.leader_id), correlated

	Leader     *query.Table
	LeaderName *query.Column

	Lead          *query.Table
	LeadSongID    *query.Column
	LeadLeaderID  *query.Column
	LeadSingingID *query.Column

	Singing     *query.Table
	SingingName *query.Column
	SingingYear *query.Column
}

// NewHymnal declares and finalizes the hymnal schema.
func NewHymnal() (*Hymnal, error) {
	reg := query.NewRegistry()
	h := &Hymnal{Registry: reg}

	h.Song = reg.Declare("Song")
	h.SongTitle = h.Song.Column("title")
	h.SongPage = h.Song.Column("page")

	h.Leader = reg.Declare("Leader")
	h.LeaderName = h.Leader.Column("name")

	h.Lead = reg.Declare("Lead")
	h.LeadSongID = h.Lead.Column("song_id")
	h.LeadLeaderID = h.Lead.Column("leader_id")
	h.LeadSingingID = h.Lead.Column("singing_id")

	h.Singing = reg.Declare("Singing")
	h.SingingName = h.Singing.Column("name")
	h.SingingYear = h.Singing.Column("year")

	reg.Join(h.LeadSongID, h.Song.ID)
	reg.Join(h.LeadLeaderID, h.Leader.ID)
	reg.LeftJoin(h.LeadSingingID, h.Singing.ID)

	h.Song.OnCreate(func(song *query.Table) error {
		var err error
		h.SongLeaders, err = song.SubqueryOf(h.LeadLeaderID.CountDistinct())
		return err
	})

	if err := reg.Finalize(); err != nil {
		return nil, err
	}
	return h, nil
}

// SeedSQL creates and fills the hymnal tables.
//
//	Smith leads Holy Manna and Idumea, O'Neal leads Holy Manna, Abbott leads
//	Northfield at no recorded singing.
const SeedSQL = `
CREATE TABLE Song (id INTEGER PRIMARY KEY, title TEXT NOT NULL, page INTEGER);
CREATE TABLE Leader (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE Singing (id INTEGER PRIMARY KEY, name TEXT NOT NULL, year INTEGER);
CREATE TABLE Lead (
	id INTEGER PRIMARY KEY,
	song_id INTEGER NOT NULL REFERENCES Song(id),
	leader_id INTEGER NOT NULL REFERENCES Leader(id),
	singing_id INTEGER REFERENCES Singing(id)
);

INSERT INTO Song VALUES (1, 'Holy Manna', 59), (2, 'Idumea', 47), (3, 'Northfield', 155);
INSERT INTO Leader VALUES (1, 'Smith'), (2, 'O''Neal'), (3, 'Abbott');
INSERT INTO Singing VALUES (1, 'Camp Fasola', 2010), (2, 'Sacred Harp Convention', 1999);
INSERT INTO Lead VALUES (1, 1, 1, 1), (2, 1, 2, 1), (3, 2, 1, 2), (4, 3, 3, NULL);
`
