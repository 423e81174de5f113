package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

func TestOpenSQLite_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (k TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestOpenSQLite_InMemory(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (k TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t VALUES ('a')`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRecordIndex_SearchRanksTitleMatches(t *testing.T) {
	// Given: an index with two records mentioning statins
	idx, err := NewRecordIndex()
	require.NoError(t, err)
	defer idx.Close()

	records := []*evidence.Record{
		{ID: "PMID:1", Title: "Aspirin in stroke", Abstract: "Statins were a secondary comparator."},
		{ID: "PMID:2", Title: "Statins for primary prevention", Abstract: "We reviewed statins in adults."},
		{ID: "PMID:3", Title: "Exercise and sleep", Abstract: "Walking improves sleep quality."},
	}
	require.NoError(t, idx.Index(context.Background(), records))
	require.Equal(t, 3, idx.Len())

	// When: searching for statin
	hits, err := idx.Search(context.Background(), "statin", 10)
	require.NoError(t, err)

	// Then: the title match ranks first and the unrelated record is absent
	require.Len(t, hits, 2)
	assert.Equal(t, "PMID:2", hits[0].Record.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestRecordIndex_EmptyQuery(t *testing.T) {
	idx, err := NewRecordIndex()
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRecordIndex_ClosedIndex(t *testing.T) {
	idx, err := NewRecordIndex()
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), "statin", 10)
	assert.Error(t, err)
	assert.Error(t, idx.Index(context.Background(), []*evidence.Record{{ID: "x"}}))
}
