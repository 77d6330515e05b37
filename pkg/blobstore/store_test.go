package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/oh-scheduler-go/pkg/database"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "cs61a-fa26/1.state")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "cs61a-fa26/2.state", []byte("two")))
	require.NoError(t, s.Put(ctx, "cs61a-fa26/1.state", []byte("one")))
	require.NoError(t, s.Put(ctx, "cs61b-fa26/1.state", []byte("other")))
	require.NoError(t, s.Put(ctx, "cs61a_fa26/1.state", []byte("underscore")))

	data, err := s.Get(ctx, "cs61a-fa26/1.state")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	require.NoError(t, s.Put(ctx, "cs61a-fa26/1.state", []byte("uno")))
	data, err = s.Get(ctx, "cs61a-fa26/1.state")
	require.NoError(t, err)
	assert.Equal(t, "uno", string(data))

	keys, err := s.List(ctx, "cs61a-fa26/")
	require.NoError(t, err)
	assert.Equal(t, []string{"cs61a-fa26/1.state", "cs61a-fa26/2.state"}, keys)

	assert.ErrorIs(t, s.Create(ctx, "cs61a-fa26/1.state", []byte("late")), ErrExists)
	data, err = s.Get(ctx, "cs61a-fa26/1.state")
	require.NoError(t, err)
	assert.Equal(t, "uno", string(data), "create never overwrites")

	require.NoError(t, s.Create(ctx, "cs61a-fa26/3.state", []byte("three")))
	require.NoError(t, s.Delete(ctx, "cs61a-fa26/3.state"))

	require.NoError(t, s.Delete(ctx, "cs61a-fa26/2.state"))
	assert.ErrorIs(t, s.Delete(ctx, "cs61a-fa26/2.state"), ErrNotFound)

	keys, err = s.List(ctx, "cs61a-fa26/")
	require.NoError(t, err)
	assert.Equal(t, []string{"cs61a-fa26/1.state"}, keys)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStore_CopiesData(t *testing.T) {
	s := NewMemory()
	buf := []byte("abc")
	require.NoError(t, s.Put(context.Background(), "k", buf))
	buf[0] = 'z'
	data, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestDBStore(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	exerciseStore(t, NewDB(db))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\`, escapeLike(`a_b%c\`))
}
