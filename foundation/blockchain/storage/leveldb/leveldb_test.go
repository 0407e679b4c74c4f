package leveldb_test

import (
	"path/filepath"
	"testing"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/storage/leveldb"
	"github.com/stretchr/testify/require"
)

func Test_Batch(t *testing.T) {
	db, err := leveldb.NewMemory()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("best"))
	require.ErrorIs(t, err, database.ErrNotFound)

	var batch database.Batch
	batch.Put([]byte("best"), []byte{1})
	batch.Put([]byte("height"), []byte{2})
	require.NoError(t, db.Write(&batch))

	v, err := db.Get([]byte("height"))
	require.NoError(t, err)
	require.Equal(t, []byte{2}, v)

	var del database.Batch
	del.Delete([]byte("best"))
	require.NoError(t, db.Write(&del))

	ok, err := db.Has([]byte("best"))
	require.NoError(t, err)
	require.False(t, ok)

	n, err := db.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func Test_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.db")

	db, err := leveldb.New(path, t.Logf)
	require.NoError(t, err)

	var batch database.Batch
	batch.Put([]byte("key"), []byte("value"))
	require.NoError(t, db.Write(&batch))
	require.NoError(t, db.Close())

	db, err = leveldb.New(path, t.Logf)
	require.NoError(t, err)
	defer db.Close()

	v, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, "value", string(v))
}
