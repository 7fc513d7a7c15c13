package store

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlpath/internal/query"
)

func TestQuery_JoinsThroughBridge(t *testing.T) {
	s, h := createTestStore(t)

	q := h.Leader.SelectList(h.LeaderName, h.SongTitle.Count()).OrderAsc(h.LeaderName)
	res, err := s.Query(t.Context(), q)
	require.NoError(t, err)

	assert.Equal(t, []string{"_id", "col_Leader_name", "col_COUNT_Song_title_"}, res.Columns)
	require.Equal(t, 3, res.Len())

	want := []struct {
		id    int64
		name  string
		songs int64
	}{
		{3, "Abbott", 1},
		{2, "O'Neal", 1},
		{1, "Smith", 2},
	}
	for i, w := range want {
		rec := res.Records[i]

		id, err := rec.ID()
		require.NoError(t, err)
		assert.Equal(t, w.id, id)

		assert.Equal(t, w.name, rec.String("col_Leader_name"))

		songs, err := rec.Int("col_COUNT_Song_title_")
		require.NoError(t, err)
		assert.Equal(t, w.songs, songs)
	}
}

func TestQuery_BindsPlaceholders(t *testing.T) {
	s, h := createTestStore(t)

	q := h.Song.Select(h.SongTitle).Where(h.SongPage, ">", query.Param).OrderAsc(h.SongPage)
	res, err := s.Query(t.Context(), q, 50)
	require.NoError(t, err)

	assert.Equal(t, []string{"Holy Manna", "Northfield"}, res.Values("col_Song_title"))
}

func TestQuery_EscapedLiteral(t *testing.T) {
	s, h := createTestStore(t)

	q := h.Leader.Select(h.Leader.ID).Where(h.LeaderName, "IN", []string{"O'Neal", "Nobody"})
	res, err := s.Query(t.Context(), q)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())

	id, err := res.Records[0].ID()
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestQuery_NullValues(t *testing.T) {
	s, h := createTestStore(t)

	q := h.Lead.Select(h.LeadSingingID, h.SingingYear).Where(h.Lead.ID, "=", 4)
	res, err := s.Query(t.Context(), q)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())

	rec := res.Records[0]
	assert.True(t, rec.Has("col_Lead_singing_id"))
	assert.True(t, rec.IsNull("col_Lead_singing_id"))
	assert.True(t, rec.IsNull("col_Singing_year"), "outer join keeps the lead without a singing")
	assert.Equal(t, "", rec.String("col_Lead_singing_id"))

	_, err = rec.Int("col_Lead_singing_id")
	assert.ErrorIs(t, err, ErrNullValue)
	_, err = rec.Float("missing")
	assert.ErrorIs(t, err, ErrNullValue)
	assert.False(t, rec.Has("missing"))
}

func TestQuery_EmptyResult(t *testing.T) {
	s, h := createTestStore(t)

	res, err := s.Query(t.Context(), h.Song.Select(h.SongTitle).Where(h.SongPage, ">", 1000))
	require.NoError(t, err)
	assert.NotNil(t, res.Records)
	assert.Equal(t, 0, res.Len())
}

func TestQuery_RenderError(t *testing.T) {
	s, _ := createTestStore(t)

	reg := query.NewRegistry()
	a := reg.Declare("A")
	b := reg.Declare("B")

	_, err := s.Query(t.Context(), a.Select(b.ID))
	assert.True(t, query.IsNoJoinPath(err))
}

func TestGet(t *testing.T) {
	s, h := createTestStore(t)

	rec, err := s.Get(t.Context(), h.Song, h.SongTitle, "Idumea")
	require.NoError(t, err)

	id, err := rec.ID()
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	page, err := rec.Float("col_Song_page")
	require.NoError(t, err)
	assert.Equal(t, 47.0, page)

	leaders, ok := rec.Get(h.SongLeaders)
	require.True(t, ok)
	assert.Equal(t, "1", leaders)

	assert.Equal(t, []string{"_id", "col_Song_title", "col_Song_page", "Song_col3"}, rec.Columns())
}

func TestGet_NotFound(t *testing.T) {
	s, h := createTestStore(t)

	_, err := s.Get(t.Context(), h.Song, h.SongTitle, "Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResult_Sections(t *testing.T) {
	s, h := createTestStore(t)

	q := h.Leader.Select(h.LeaderName).SectionIndex(h.LeaderName, query.Desc)
	res, err := s.Query(t.Context(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Smith", "O'Neal", "Abbott"}, res.Values(query.IndexAlias))

	ix, err := res.Sections("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	require.NoError(t, err)
	assert.True(t, ix.Desc())
	assert.Equal(t, "Z", ix.Labels()[0])

	sIdx, oIdx, aIdx := 25-18, 25-14, 25
	assert.Equal(t, 1, ix.CountForSection(sIdx))
	assert.Equal(t, 1, ix.CountForSection(oIdx))
	assert.Equal(t, 1, ix.CountForSection(aIdx))
	assert.Equal(t, oIdx, ix.SectionForPosition(1))
}

func TestResult_SectionsRequiresIndex(t *testing.T) {
	s, h := createTestStore(t)

	res, err := s.Query(t.Context(), h.Leader.Select(h.LeaderName))
	require.NoError(t, err)

	_, err = res.Sections("ABC")
	assert.ErrorIs(t, err, ErrNoSectionIndex)
}

func TestQuery_Mock(t *testing.T) {
	h := newHymnal(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db, h.Registry)
	q := h.Song.SelectList(h.SongTitle).WhereEq(h.SongPage)

	text, err := q.Render()
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(text)).
		WithArgs(59).
		WillReturnRows(sqlmock.NewRows([]string{"_id", "col_Song_title"}).
			AddRow(1, "Holy Manna").
			AddRow(4, nil))

	res, err := s.Query(t.Context(), q, 59)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, "Holy Manna", res.Records[0].String("col_Song_title"))
	assert.True(t, res.Records[1].IsNull("col_Song_title"))

	id, err := res.Records[1].ID()
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_MockDriverError(t *testing.T) {
	h := newHymnal(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT .* FROM Song").WillReturnError(boom)

	_, err = New(db, h.Registry).Query(t.Context(), h.Song.Select(h.SongTitle))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_MockScanError(t *testing.T) {
	h := newHymnal(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM Song").
		WillReturnRows(sqlmock.NewRows([]string{"col_Song_title"}).
			AddRow("Holy Manna").
			RowError(0, errors.New("row failed")))

	_, err = New(db, h.Registry).Query(t.Context(), h.Song.Select(h.SongTitle))
	assert.Error(t, err)
}
