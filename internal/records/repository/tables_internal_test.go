package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewSelect_Empty(t *testing.T) {
	got := viewSelect(nil)
	assert.Equal(t, emptyViewSelect, got)
	assert.True(t, strings.HasSuffix(got, "WHERE false"))
	// the typed empty relation exposes the same columns as a real branch
	for _, col := range strings.Split(recordColumns, ", ") {
		assert.Contains(t, got, " AS "+col)
	}
}

func TestViewSelect_QuotesNames(t *testing.T) {
	got := viewSelect([]string{"t_Milan_Smotlak", "t_Sean_O'Brien"})

	assert.Contains(t, got, `SELECT 't_Milan_Smotlak'::text AS source_table, `+recordColumns+` FROM "t_Milan_Smotlak"`)
	assert.Contains(t, got, `SELECT 't_Sean_O''Brien'::text AS source_table, `+recordColumns+` FROM "t_Sean_O'Brien"`)
	assert.Equal(t, 1, strings.Count(got, " UNION ALL "))
}

func TestCreateTableStatements(t *testing.T) {
	first := createTableStatements("t_Milan_Smotlak")
	second := createTableStatements("t_Milan_Smotlak")
	require.Len(t, first, 2)

	assert.True(t, strings.HasPrefix(first[0], `CREATE TABLE "t_Milan_Smotlak" (`))
	assert.Contains(t, first[0], "activity_type_id INTEGER NOT NULL REFERENCES activity_types(id)")
	assert.Contains(t, first[0], "CHECK (distance >= 0)")
	assert.Contains(t, first[0], "locked BOOLEAN NOT NULL DEFAULT FALSE")
	assert.Contains(t, first[1], `ON "t_Milan_Smotlak" (record_date)`)

	// constraint names are unique per call so a renamed table never blocks a new one
	assert.NotEqual(t, first[0], second[0])
	assert.NotEqual(t, first[1], second[1])
}
