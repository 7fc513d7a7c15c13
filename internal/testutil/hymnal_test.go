package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHymnal(t *testing.T) {
	h, err := NewHymnal()
	require.NoError(t, err)

	assert.True(t, h.Registry.Frozen())
	assert.Len(t, h.Registry.Tables(), 4)
	require.NotNil(t, h.SongLeaders)
	assert.Equal(t, "Song_col3", h.SongLeaders.Alias())

	sql, err := h.Leader.Select(h.SingingName).Render()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT Singing.name AS col_Singing_name FROM Leader JOIN Lead ON Lead.leader_id = Leader.id LEFT JOIN Singing ON Lead.singing_id = Singing.id",
		sql)
}
