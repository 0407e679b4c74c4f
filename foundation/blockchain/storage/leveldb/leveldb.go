// Package leveldb implements the database.Storage interface on top of a
// goleveldb key value store.
package leveldb

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// Options returns the options used to open the store.
func Options() *opt.Options {
	return &opt.Options{
		Compression:        opt.NoCompression,
		BlockCacheCapacity: 32 * opt.MiB,
		WriteBuffer:        16 * opt.MiB,
	}
}

// LevelDB defines a thin wrapper around leveldb. This implements the
// database.Storage interface.
type LevelDB struct {
	ldb *leveldb.DB
}

// New opens the leveldb instance at the specified path, creating it if it
// doesn't exist. A corrupted database is recovered before it is used.
func New(path string, evHandler func(v string, args ...any)) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(path, Options())

	if ldberrors.IsCorrupted(err) {
		if evHandler != nil {
			evHandler("leveldb: New: corruption detected for path %s: %s", path, err)
		}

		ldb, err = leveldb.RecoverFile(path, Options())
		if err != nil {
			return nil, fmt.Errorf("recovering %s: %w", path, err)
		}

		if evHandler != nil {
			evHandler("leveldb: New: recovered from corruption for path %s", path)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return &LevelDB{ldb: ldb}, nil
}

// NewMemory opens a leveldb instance that lives only in memory.
func NewMemory() (*LevelDB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), Options())
	if err != nil {
		return nil, err
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close closes the leveldb instance.
func (db *LevelDB) Close() error {
	return db.ldb.Close()
}

// Get gets the value for the given key. It returns database.ErrNotFound if
// the given key does not exist.
func (db *LevelDB) Get(key []byte) ([]byte, error) {
	data, err := db.ldb.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

// Has returns true if the database does contains the given key.
func (db *LevelDB) Has(key []byte) (bool, error) {
	return db.ldb.Has(key, nil)
}

// Write applies the batch atomically.
func (db *LevelDB) Write(batch *database.Batch) error {
	var lb leveldb.Batch
	for _, op := range batch.Ops() {
		if op.Delete {
			lb.Delete(op.Key)
			continue
		}
		lb.Put(op.Key, op.Value)
	}

	return db.ldb.Write(&lb, &opt.WriteOptions{Sync: true})
}

// Count returns the number of keys in the store.
func (db *LevelDB) Count() (int, error) {
	iter := db.ldb.NewIterator(nil, nil)
	defer iter.Release()

	var n int
	for iter.Next() {
		n++
	}

	return n, iter.Error()
}
