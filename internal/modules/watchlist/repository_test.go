package watchlist

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invexis/invexis/internal/database"
)

func newTestRepo(t *testing.T, name string) *Repository {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    "file:" + name + "?mode=memory&cache=shared",
		Profile: database.ProfileStandard,
		Name:    "users",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.InitSchema(Schema))
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestAddListRemove(t *testing.T) {
	repo := newTestRepo(t, "watchlist_crud_test")

	entry, err := repo.Add("user-1", "AAPL")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)

	_, err = repo.Add("user-1", "MSFT")
	require.NoError(t, err)

	entries, err := repo.List("user-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, repo.Remove("user-1", "AAPL"))
	entries, err = repo.List("user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "MSFT", entries[0].Symbol)
}

func TestAddIsIdempotent(t *testing.T) {
	repo := newTestRepo(t, "watchlist_idempotent_test")

	first, err := repo.Add("user-1", "AAPL")
	require.NoError(t, err)
	second, err := repo.Add("user-1", "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-adding returns the existing entry")

	entries, err := repo.List("user-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListsAreScopedPerUser(t *testing.T) {
	repo := newTestRepo(t, "watchlist_scope_test")

	_, err := repo.Add("user-1", "AAPL")
	require.NoError(t, err)
	_, err = repo.Add("user-2", "MSFT")
	require.NoError(t, err)

	entries, err := repo.List("user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "AAPL", entries[0].Symbol)
}

func TestAllSymbolsDeduplicates(t *testing.T) {
	repo := newTestRepo(t, "watchlist_symbols_test")

	_, err := repo.Add("user-1", "AAPL")
	require.NoError(t, err)
	_, err = repo.Add("user-2", "AAPL")
	require.NoError(t, err)
	_, err = repo.Add("user-2", "MSFT")
	require.NoError(t, err)

	symbols, err := repo.AllSymbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}
